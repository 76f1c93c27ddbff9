package shareaudit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for audit, activity, metrics and
// settings persistence.
type Repository interface {
	// Download audit operations
	CreateDownloadAudit(ctx context.Context, record *DownloadAudit) error
	GetDownloadAudit(ctx context.Context, id uuid.UUID) (*DownloadAudit, error)
	UpdateDownloadAudit(ctx context.Context, record *DownloadAudit) error
	QueryDownloadAudits(ctx context.Context, query DownloadQuery) ([]*DownloadAudit, error)
	// OpenDownloadRows returns a forward-only cursor over enriched
	// download rows for export streaming.
	OpenDownloadRows(ctx context.Context, query DownloadQuery) (DownloadRows, error)

	// Activity log operations
	AppendActivity(ctx context.Context, entry *ActivityEntry) error
	QueryActivity(ctx context.Context, query ActivityQuery) ([]*ActivityEntry, error)
	DistinctActions(ctx context.Context) ([]string, error)
	OpenActivityRows(ctx context.Context, query ActivityQuery) (ActivityRows, error)

	// Metric sample operations. The core only reads samples; the
	// writers are used by the external periodic sampler.
	DiskSamplesBetween(ctx context.Context, from, to time.Time) ([]*DiskSample, error)
	LatestDiskSamples(ctx context.Context, limit int) ([]*DiskSample, error)
	RecordDiskSample(ctx context.Context, sample *DiskSample) error
	UploadStatsBetween(ctx context.Context, from, to time.Time) ([]*UploadDailyStat, error)
	UpsertUploadDailyStat(ctx context.Context, stat *UploadDailyStat) error

	// Settings operations (raw string values; typing lives in the
	// registry)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Account and invitation lookups
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
	GetInvitationByUsername(ctx context.Context, username string) (*Invitation, error)

	// File lookup (consumed from the storage collaborator's tables)
	GetFileInfo(ctx context.Context, id uuid.UUID) (*FileInfo, error)
}

// DownloadRows is a forward-only cursor over enriched download audit
// rows. Close releases the underlying resources and is safe to call at
// any point, including after an abandoned export.
type DownloadRows interface {
	Next() bool
	Row() (*DownloadExportRow, error)
	Err() error
	Close()
}

// ActivityRows is a forward-only cursor over enriched activity rows.
type ActivityRows interface {
	Next() bool
	Row() (*ActivityExportRow, error)
	Err() error
	Close()
}

// ClientResolver enriches a raw ip/user-agent pair with geo and device
// heuristics. Its outputs are stored as opaque forensic context.
type ClientResolver interface {
	Resolve(ctx context.Context, ipAddress, userAgent string) ClientContext
}

// DiagnosticSink is the secondary channel audit and activity failures
// are routed to. Implementations must never panic or block.
type DiagnosticSink interface {
	ReportFailure(ctx context.Context, op string, err error)
}

// TokenValidator is the CSRF validation contract consumed from the
// session collaborator.
type TokenValidator interface {
	Validate(token string) bool
}

// TokenValidatorFunc adapts a function to the TokenValidator interface.
type TokenValidatorFunc func(token string) bool

// Validate implements TokenValidator.
func (f TokenValidatorFunc) Validate(token string) bool { return f(token) }
