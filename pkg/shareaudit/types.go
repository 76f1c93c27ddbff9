package shareaudit

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus is the domain type for download audit lifecycle states.
type DownloadStatus string

// Download status constants (typed).
const (
	DownloadStatusPending   DownloadStatus = "pending"
	DownloadStatusCompleted DownloadStatus = "completed"
)

// Query row caps. Export paths share the query paths, so the caps double
// as the safety valve when the store only supports bulk fetch.
const (
	MaxDownloadRows = 50000
	MaxActivityRows = 100000
)

// DownloadAudit is the forensic record of one download attempt. It is
// created once at begin time with the client context captured at that
// moment, and mutated exactly once when the transfer finishes. A record
// with a nil CompletedAt is pending: in flight or abandoned, never
// failed.
type DownloadAudit struct {
	ID               uuid.UUID  `json:"id"`
	FileID           uuid.UUID  `json:"file_id"`
	ShareID          *uuid.UUID `json:"share_id,omitempty"`
	ShareToken       string     `json:"share_token,omitempty"`
	UserID           *uuid.UUID `json:"user_id,omitempty"` // nil = anonymous
	IPAddress        string     `json:"ip_address"`
	UserAgent        string     `json:"user_agent"`
	Country          string     `json:"country,omitempty"`
	City             string     `json:"city,omitempty"`
	Browser          string     `json:"browser,omitempty"`
	OS               string     `json:"os,omitempty"`
	DeviceType       string     `json:"device_type,omitempty"`
	IsBot            bool       `json:"is_bot"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	BytesTransferred int64      `json:"bytes_transferred"`
	HTTPStatus       int        `json:"http_status"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	DeclaredSize     int64      `json:"declared_size"`
}

// Status derives the lifecycle state from the completion timestamp.
func (d *DownloadAudit) Status() DownloadStatus {
	if d.CompletedAt == nil {
		return DownloadStatusPending
	}
	return DownloadStatusCompleted
}

// DurationSeconds returns the transfer duration, defined only when both
// timestamps are present.
func (d *DownloadAudit) DurationSeconds() (int64, bool) {
	if d.CompletedAt == nil {
		return 0, false
	}
	return int64(d.CompletedAt.Sub(d.StartedAt).Seconds()), true
}

// DownloadExportRow is a DownloadAudit enriched with the joined names the
// legacy spreadsheet export renders. Username and FullName are empty for
// anonymous downloads.
type DownloadExportRow struct {
	DownloadAudit
	FileName string `json:"file_name"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// ActivityEntry is one append-only row in the administrative activity
// log. A nil ActorID marks a system-originated action.
type ActivityEntry struct {
	ID          uuid.UUID  `json:"id"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
	Action      string     `json:"action"`
	EntityType  string     `json:"entity_type"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Description string     `json:"description"`
	IPAddress   string     `json:"ip_address"`
	UserAgent   string     `json:"user_agent"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ActivityExportRow is an ActivityEntry enriched with the actor's
// username for the delimited export.
type ActivityExportRow struct {
	ActivityEntry
	ActorName string `json:"actor_name,omitempty"`
}

// DiskSample is one periodically recorded disk-usage measurement.
// Samples are produced by an external sampler; the aggregator only
// reads them.
type DiskSample struct {
	ID         uuid.UUID `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	UsedBytes  int64     `json:"used_bytes"`
	TotalBytes int64     `json:"total_bytes"`
}

// UploadDailyStat is the per-day upload activity aggregate.
type UploadDailyStat struct {
	Date           time.Time `json:"date"`
	UploadCount    int64     `json:"upload_count"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	UniqueUsers    int64     `json:"unique_users"`
}

// Account is the slice of the user table the audit core consumes.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Invitation is a pending signup slot. It reserves its forced username
// only while it is neither revoked nor used.
type Invitation struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	ForcedUsername string     `json:"forced_username"`
	Revoked        bool       `json:"revoked"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Active reports whether the invitation still reserves its username.
func (i *Invitation) Active() bool {
	return !i.Revoked && i.UsedAt == nil
}

// FileInfo is the file-lookup contract consumed from the storage
// collaborator.
type FileInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	Path      string    `json:"path"`
	MimeType  string    `json:"mime_type"`
}

// ClientContext is the request/client context captured when a download
// begins. Geo and bot fields are produced by an external resolver and
// consumed as opaque values.
type ClientContext struct {
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	Country    string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
	Browser    string `json:"browser,omitempty"`
	OS         string `json:"os,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
	IsBot      bool   `json:"is_bot"`
}

// UsernameCheck is the result of a username-existence probe. Where is
// "users" or "invitations"; a users-table match always wins.
type UsernameCheck struct {
	Exists bool   `json:"exists"`
	Where  string `json:"where,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Username-check locations and error codes.
const (
	UsernameFoundInUsers       = "users"
	UsernameFoundInInvitations = "invitations"

	UsernameCheckErrorEmpty = "empty"
	UsernameCheckErrorDB    = "db"
)

// SettingKind is the value type of a registered setting.
type SettingKind string

// Setting kinds.
const (
	SettingKindBool   SettingKind = "bool"
	SettingKindInt    SettingKind = "int"
	SettingKindFloat  SettingKind = "float"
	SettingKindString SettingKind = "string"
)

// SettingSpec declares one configuration key: its type, its default, and
// an optional validator run before every write.
type SettingSpec struct {
	Key      string
	Kind     SettingKind
	Default  string
	Validate func(value string) error
}

// Well-known setting keys.
const (
	SettingMaintenanceMode  = "maintenance_mode"
	SettingConfigProtection = "config_protection"
	SettingDiskCapacityGB   = "disk_capacity_gb"
)

// ExportLabels holds the localized strings the exports render for
// boolean cells and the anonymous-user fallback.
type ExportLabels struct {
	Yes       string
	No        string
	Anonymous string
}

// DefaultExportLabels returns the English rendering.
func DefaultExportLabels() ExportLabels {
	return ExportLabels{Yes: "Yes", No: "No", Anonymous: "Anonymous"}
}
