package shareaudit

import (
	"time"

	"github.com/google/uuid"
)

// BeginDownloadRequest contains parameters for opening a download audit
// record. IPAddress and UserAgent are the raw request values; the
// service enriches them through its ClientResolver at call time.
type BeginDownloadRequest struct {
	FileID       uuid.UUID
	ShareID      *uuid.UUID
	ShareToken   string
	UserID       *uuid.UUID
	DeclaredSize int64
	IPAddress    string
	UserAgent    string
}

// CompleteDownloadRequest contains parameters for closing a download
// audit record. A nil RecordID makes the call a no-op.
type CompleteDownloadRequest struct {
	RecordID         *uuid.UUID
	BytesTransferred int64
	HTTPStatus       int
	ErrorMessage     string
}

// AppendActivityRequest contains parameters for one activity log entry.
// A nil ActorID marks a system-originated action.
type AppendActivityRequest struct {
	ActorID     *uuid.UUID
	Action      string
	EntityType  string
	EntityID    *uuid.UUID
	Description string
	IPAddress   string
	UserAgent   string
}

// DownloadQuery filters the download audit ledger. Results are ordered
// most recent first and capped at MaxDownloadRows.
type DownloadQuery struct {
	From      time.Time
	To        time.Time
	IPAddress string
	UserID    *uuid.UUID
	Limit     int
}

// ActivityQuery filters the activity log. Results are ordered most
// recent first and capped at MaxActivityRows.
type ActivityQuery struct {
	From   time.Time
	To     time.Time
	Action string
	Limit  int
	Offset int
}

// MetricsQuery carries the raw, unvalidated inputs of a metrics request.
// From and To are calendar days in "2006-01-02" form; Days is a rolling
// window length. Zero values mean "not supplied".
type MetricsQuery struct {
	From string
	To   string
	Days int
}

// MetricsParams echoes the parameters a metrics query actually resolved
// to, which may differ from the raw request after fallback.
type MetricsParams struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Days  int    `json:"days,omitempty"`
	Limit int    `json:"limit,omitempty"`
}
