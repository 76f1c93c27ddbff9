package shareaudit

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service is the unified interface over the download audit ledger, the
// activity log, the metrics aggregator and the export formatter.
type Service interface {
	// Download audit lifecycle. BeginDownload returns a nil record id
	// on any storage failure instead of an error: the audit subsystem
	// must never fail the download it is observing. CompleteDownload is
	// a no-op for a nil record id.
	BeginDownload(ctx context.Context, req BeginDownloadRequest) *uuid.UUID
	CompleteDownload(ctx context.Context, req CompleteDownloadRequest)
	QueryDownloads(ctx context.Context, query DownloadQuery) ([]*DownloadAudit, error)

	// Activity log. RecordActivity is fire-and-forget.
	RecordActivity(ctx context.Context, req AppendActivityRequest)
	QueryActivity(ctx context.Context, query ActivityQuery) ([]*ActivityEntry, error)
	DistinctActions(ctx context.Context) ([]string, error)

	// Metrics aggregation
	DiskSeries(ctx context.Context, query MetricsQuery) (*DiskSeries, error)
	UploadSeries(ctx context.Context, query MetricsQuery) (*UploadSeries, error)

	// Export streaming
	ExportActivityCSV(ctx context.Context, query ActivityQuery, w io.Writer) error
	ExportDownloadsWorkbook(ctx context.Context, query DownloadQuery, w io.Writer) error

	// Account checks
	UsernameExists(ctx context.Context, username string) UsernameCheck

	// Typed settings registry
	Setting(ctx context.Context, key string) (string, error)
	BoolSetting(ctx context.Context, key string) (bool, error)
	FloatSetting(ctx context.Context, key string) (float64, error)
	UpdateSetting(ctx context.Context, key, value string) error
}

// distinctActionsTTL bounds how stale the cached action list may get.
// The filter control tolerates a short lag; the log view renders often.
const distinctActionsTTL = 30 * time.Second

// service implements the Service interface
type service struct {
	repository Repository
	resolver   ClientResolver
	sink       DiagnosticSink
	labels     ExportLabels
	settings   map[string]SettingSpec
	now        func() time.Time

	actionsMu      sync.Mutex
	actions        []string
	actionsExpires time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithClientResolver sets the geo/bot enrichment resolver
func WithClientResolver(resolver ClientResolver) Option {
	return func(s *service) {
		s.resolver = resolver
	}
}

// WithDiagnosticSink sets the secondary channel for swallowed failures
func WithDiagnosticSink(sink DiagnosticSink) Option {
	return func(s *service) {
		s.sink = sink
	}
}

// WithExportLabels sets the localized strings used by the exports
func WithExportLabels(labels ExportLabels) Option {
	return func(s *service) {
		s.labels = labels
	}
}

// WithSettingSpecs registers additional configuration keys on top of
// the built-in ones
func WithSettingSpecs(specs ...SettingSpec) Option {
	return func(s *service) {
		for _, spec := range specs {
			s.settings[spec.Key] = spec
		}
	}
}

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		resolver: NewNoopClientResolver(),
		sink:     NewSlogDiagnosticSink(nil),
		labels:   DefaultExportLabels(),
		settings: builtinSettingSpecs(),
		now:      time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// Download audit operations

func (s *service) BeginDownload(ctx context.Context, req BeginDownloadRequest) *uuid.UUID {
	client := s.resolver.Resolve(ctx, req.IPAddress, req.UserAgent)

	record := &DownloadAudit{
		ID:           uuid.New(),
		FileID:       req.FileID,
		ShareID:      req.ShareID,
		ShareToken:   req.ShareToken,
		UserID:       req.UserID,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
		Country:      client.Country,
		City:         client.City,
		Browser:      client.Browser,
		OS:           client.OS,
		DeviceType:   client.DeviceType,
		IsBot:        client.IsBot,
		StartedAt:    s.now().UTC(),
		DeclaredSize: req.DeclaredSize,
	}

	if record.DeclaredSize == 0 {
		// Best effort: the declared size is forensic context, not a
		// requirement for opening the record.
		if file, err := s.repository.GetFileInfo(ctx, req.FileID); err == nil {
			record.DeclaredSize = file.SizeBytes
		}
	}

	if err := s.repository.CreateDownloadAudit(ctx, record); err != nil {
		s.sink.ReportFailure(ctx, "audit.begin", &AuditError{RecordID: record.ID, Op: "begin", Err: err})
		return nil
	}

	id := record.ID
	return &id
}

func (s *service) CompleteDownload(ctx context.Context, req CompleteDownloadRequest) {
	if req.RecordID == nil {
		return
	}

	record, err := s.repository.GetDownloadAudit(ctx, *req.RecordID)
	if err != nil {
		s.sink.ReportFailure(ctx, "audit.complete", &AuditError{RecordID: *req.RecordID, Op: "complete", Err: err})
		return
	}

	// Exactly one completion path is expected per issued id; a second
	// call overwrites (last write wins).
	now := s.now().UTC()
	record.CompletedAt = &now
	record.BytesTransferred = req.BytesTransferred
	record.HTTPStatus = req.HTTPStatus
	record.ErrorMessage = req.ErrorMessage

	if err := s.repository.UpdateDownloadAudit(ctx, record); err != nil {
		s.sink.ReportFailure(ctx, "audit.complete", &AuditError{RecordID: record.ID, Op: "complete", Err: err})
	}
}

func (s *service) QueryDownloads(ctx context.Context, query DownloadQuery) ([]*DownloadAudit, error) {
	if query.Limit <= 0 || query.Limit > MaxDownloadRows {
		query.Limit = MaxDownloadRows
	}
	return s.repository.QueryDownloadAudits(ctx, query)
}

// Activity log operations

func (s *service) RecordActivity(ctx context.Context, req AppendActivityRequest) {
	entry := &ActivityEntry{
		ID:          uuid.New(),
		ActorID:     req.ActorID,
		Action:      req.Action,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Description: req.Description,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repository.AppendActivity(ctx, entry); err != nil {
		s.sink.ReportFailure(ctx, "activity.append", &ActivityError{Action: req.Action, Op: "append", Err: err})
		return
	}

	s.noteAction(entry.Action)
}

func (s *service) QueryActivity(ctx context.Context, query ActivityQuery) ([]*ActivityEntry, error) {
	if query.Limit <= 0 {
		query.Limit = 100
	}
	if query.Limit > MaxActivityRows {
		query.Limit = MaxActivityRows
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return s.repository.QueryActivity(ctx, query)
}

func (s *service) DistinctActions(ctx context.Context) ([]string, error) {
	s.actionsMu.Lock()
	if s.actions != nil && s.now().Before(s.actionsExpires) {
		cached := append([]string(nil), s.actions...)
		s.actionsMu.Unlock()
		return cached, nil
	}
	s.actionsMu.Unlock()

	actions, err := s.repository.DistinctActions(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(actions)

	s.actionsMu.Lock()
	s.actions = actions
	s.actionsExpires = s.now().Add(distinctActionsTTL)
	s.actionsMu.Unlock()

	return append([]string(nil), actions...), nil
}

// noteAction drops the cached action list when an unseen action string
// is appended, so the filter control picks it up on the next render.
func (s *service) noteAction(action string) {
	s.actionsMu.Lock()
	defer s.actionsMu.Unlock()

	if s.actions == nil {
		return
	}
	i := sort.SearchStrings(s.actions, action)
	if i >= len(s.actions) || s.actions[i] != action {
		s.actions = nil
	}
}
