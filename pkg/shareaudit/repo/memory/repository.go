package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

// Repository implements shareaudit.Repository using in-memory storage.
// Useful for tests and single-node development setups.
type Repository struct {
	mu          sync.RWMutex
	downloads   map[uuid.UUID]*shareaudit.DownloadAudit
	activities  []*shareaudit.ActivityEntry
	actionIndex map[string]struct{}
	diskSamples []*shareaudit.DiskSample
	uploadStats map[time.Time]*shareaudit.UploadDailyStat
	settings    map[string]string
	accounts    map[uuid.UUID]*shareaudit.Account
	invitations map[string]*shareaudit.Invitation
	files       map[uuid.UUID]*shareaudit.FileInfo
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		downloads:   make(map[uuid.UUID]*shareaudit.DownloadAudit),
		actionIndex: make(map[string]struct{}),
		uploadStats: make(map[time.Time]*shareaudit.UploadDailyStat),
		settings:    make(map[string]string),
		accounts:    make(map[uuid.UUID]*shareaudit.Account),
		invitations: make(map[string]*shareaudit.Invitation),
		files:       make(map[uuid.UUID]*shareaudit.FileInfo),
	}
}

// Download audit operations

func (r *Repository) CreateDownloadAudit(ctx context.Context, record *shareaudit.DownloadAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy to avoid external modifications
	recordCopy := *record
	r.downloads[record.ID] = &recordCopy
	return nil
}

func (r *Repository) GetDownloadAudit(ctx context.Context, id uuid.UUID) (*shareaudit.DownloadAudit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.downloads[id]
	if !exists {
		return nil, shareaudit.ErrDownloadNotFound
	}
	recordCopy := *record
	return &recordCopy, nil
}

func (r *Repository) UpdateDownloadAudit(ctx context.Context, record *shareaudit.DownloadAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.downloads[record.ID]; !exists {
		return shareaudit.ErrDownloadNotFound
	}
	recordCopy := *record
	r.downloads[record.ID] = &recordCopy
	return nil
}

func (r *Repository) QueryDownloadAudits(ctx context.Context, query shareaudit.DownloadQuery) ([]*shareaudit.DownloadAudit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*shareaudit.DownloadAudit
	for _, record := range r.downloads {
		if !matchesDownloadQuery(record, query) {
			continue
		}
		recordCopy := *record
		result = append(result, &recordCopy)
	}

	// Most recent first
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

func (r *Repository) OpenDownloadRows(ctx context.Context, query shareaudit.DownloadQuery) (shareaudit.DownloadRows, error) {
	records, err := r.QueryDownloadAudits(ctx, query)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]*shareaudit.DownloadExportRow, 0, len(records))
	for _, record := range records {
		row := &shareaudit.DownloadExportRow{DownloadAudit: *record}
		if file, ok := r.files[record.FileID]; ok {
			row.FileName = file.Name
		}
		if record.UserID != nil {
			if account, ok := r.accounts[*record.UserID]; ok {
				row.Username = account.Username
				row.FullName = account.FullName
			}
		}
		rows = append(rows, row)
	}
	return &downloadRows{rows: rows}, nil
}

func matchesDownloadQuery(record *shareaudit.DownloadAudit, query shareaudit.DownloadQuery) bool {
	if !query.From.IsZero() && record.StartedAt.Before(query.From) {
		return false
	}
	if !query.To.IsZero() && record.StartedAt.After(query.To) {
		return false
	}
	if query.IPAddress != "" && record.IPAddress != query.IPAddress {
		return false
	}
	if query.UserID != nil {
		if record.UserID == nil || *record.UserID != *query.UserID {
			return false
		}
	}
	return true
}

// Activity log operations

func (r *Repository) AppendActivity(ctx context.Context, entry *shareaudit.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entryCopy := *entry
	r.activities = append(r.activities, &entryCopy)
	r.actionIndex[entry.Action] = struct{}{}
	return nil
}

func (r *Repository) QueryActivity(ctx context.Context, query shareaudit.ActivityQuery) ([]*shareaudit.ActivityEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*shareaudit.ActivityEntry
	for _, entry := range r.activities {
		if !matchesActivityQuery(entry, query) {
			continue
		}
		entryCopy := *entry
		result = append(result, &entryCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if query.Offset > 0 {
		if query.Offset >= len(result) {
			return nil, nil
		}
		result = result[query.Offset:]
	}
	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

func (r *Repository) DistinctActions(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]string, 0, len(r.actionIndex))
	for action := range r.actionIndex {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions, nil
}

func (r *Repository) OpenActivityRows(ctx context.Context, query shareaudit.ActivityQuery) (shareaudit.ActivityRows, error) {
	entries, err := r.QueryActivity(ctx, query)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]*shareaudit.ActivityExportRow, 0, len(entries))
	for _, entry := range entries {
		row := &shareaudit.ActivityExportRow{ActivityEntry: *entry}
		if entry.ActorID != nil {
			if account, ok := r.accounts[*entry.ActorID]; ok {
				row.ActorName = account.Username
			}
		}
		rows = append(rows, row)
	}
	return &activityRows{rows: rows}, nil
}

func matchesActivityQuery(entry *shareaudit.ActivityEntry, query shareaudit.ActivityQuery) bool {
	if !query.From.IsZero() && entry.CreatedAt.Before(query.From) {
		return false
	}
	if !query.To.IsZero() && entry.CreatedAt.After(query.To) {
		return false
	}
	if query.Action != "" && entry.Action != query.Action {
		return false
	}
	return true
}

// Metric sample operations

func (r *Repository) DiskSamplesBetween(ctx context.Context, from, to time.Time) ([]*shareaudit.DiskSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*shareaudit.DiskSample
	for _, sample := range r.diskSamples {
		if sample.RecordedAt.Before(from) || sample.RecordedAt.After(to) {
			continue
		}
		sampleCopy := *sample
		result = append(result, &sampleCopy)
	}
	return result, nil
}

func (r *Repository) LatestDiskSamples(ctx context.Context, limit int) ([]*shareaudit.DiskSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*shareaudit.DiskSample, 0, len(r.diskSamples))
	for _, sample := range r.diskSamples {
		sampleCopy := *sample
		result = append(result, &sampleCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt.After(result[j].RecordedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *Repository) RecordDiskSample(ctx context.Context, sample *shareaudit.DiskSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sampleCopy := *sample
	r.diskSamples = append(r.diskSamples, &sampleCopy)
	return nil
}

func (r *Repository) UploadStatsBetween(ctx context.Context, from, to time.Time) ([]*shareaudit.UploadDailyStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*shareaudit.UploadDailyStat
	for _, stat := range r.uploadStats {
		if stat.Date.Before(from) || stat.Date.After(to) {
			continue
		}
		statCopy := *stat
		result = append(result, &statCopy)
	}
	return result, nil
}

func (r *Repository) UpsertUploadDailyStat(ctx context.Context, stat *shareaudit.UploadDailyStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	statCopy := *stat
	r.uploadStats[dayKey(stat.Date)] = &statCopy
	return nil
}

func dayKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Settings operations

func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, exists := r.settings[key]
	if !exists {
		return "", shareaudit.ErrSettingNotFound
	}
	return value, nil
}

func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[key] = value
	return nil
}

// Account and invitation lookups

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*shareaudit.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, shareaudit.ErrAccountNotFound
	}
	accountCopy := *account
	return &accountCopy, nil
}

func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*shareaudit.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if strings.EqualFold(account.Username, username) {
			accountCopy := *account
			return &accountCopy, nil
		}
	}
	return nil, shareaudit.ErrAccountNotFound
}

func (r *Repository) GetInvitationByUsername(ctx context.Context, username string) (*shareaudit.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invitation, exists := r.invitations[strings.ToLower(username)]
	if !exists {
		return nil, shareaudit.ErrInvitationNotFound
	}
	invitationCopy := *invitation
	return &invitationCopy, nil
}

func (r *Repository) GetFileInfo(ctx context.Context, id uuid.UUID) (*shareaudit.FileInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, exists := r.files[id]
	if !exists {
		return nil, shareaudit.ErrFileNotFound
	}
	fileCopy := *file
	return &fileCopy, nil
}

// Fixture seeding. The accounts, invitations and files tables are owned
// by external collaborators; these writers exist so tests and dev
// setups can populate the slices the audit core joins against.

// AddAccount stores an account row
func (r *Repository) AddAccount(account *shareaudit.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accountCopy := *account
	r.accounts[account.ID] = &accountCopy
}

// AddInvitation stores an invitation row keyed by its forced username
func (r *Repository) AddInvitation(invitation *shareaudit.Invitation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	invitationCopy := *invitation
	r.invitations[strings.ToLower(invitation.ForcedUsername)] = &invitationCopy
}

// AddFileInfo stores a file row
func (r *Repository) AddFileInfo(file *shareaudit.FileInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fileCopy := *file
	r.files[file.ID] = &fileCopy
}
