package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements shareaudit.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) shareaudit.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) shareaudit.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Download audit operations

func (r *Repository) CreateDownloadAudit(ctx context.Context, record *shareaudit.DownloadAudit) error {
	query := `
		INSERT INTO download_audit (
			id, file_id, share_id, share_token, user_id, ip_address, user_agent,
			country, city, browser, os, device_type, is_bot, started_at,
			completed_at, bytes_transferred, http_status, error_message, declared_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(ctx, query,
		record.ID, record.FileID, record.ShareID, record.ShareToken, record.UserID,
		record.IPAddress, record.UserAgent, record.Country, record.City,
		record.Browser, record.OS, record.DeviceType, record.IsBot,
		record.StartedAt, record.CompletedAt, record.BytesTransferred,
		record.HTTPStatus, record.ErrorMessage, record.DeclaredSize)

	if err != nil {
		return r.handlePostgresError("create download audit", err)
	}
	return nil
}

func (r *Repository) GetDownloadAudit(ctx context.Context, id uuid.UUID) (*shareaudit.DownloadAudit, error) {
	query := `
		SELECT id, file_id, share_id, share_token, user_id, ip_address, user_agent,
			country, city, browser, os, device_type, is_bot, started_at,
			completed_at, bytes_transferred, http_status, error_message, declared_size
		FROM download_audit
		WHERE id = $1`

	record := &shareaudit.DownloadAudit{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.FileID, &record.ShareID, &record.ShareToken, &record.UserID,
		&record.IPAddress, &record.UserAgent, &record.Country, &record.City,
		&record.Browser, &record.OS, &record.DeviceType, &record.IsBot,
		&record.StartedAt, &record.CompletedAt, &record.BytesTransferred,
		&record.HTTPStatus, &record.ErrorMessage, &record.DeclaredSize)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shareaudit.ErrDownloadNotFound
		}
		return nil, r.handlePostgresError("get download audit", err)
	}
	return record, nil
}

func (r *Repository) UpdateDownloadAudit(ctx context.Context, record *shareaudit.DownloadAudit) error {
	query := `
		UPDATE download_audit
		SET completed_at = $2, bytes_transferred = $3, http_status = $4, error_message = $5
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query,
		record.ID, record.CompletedAt, record.BytesTransferred,
		record.HTTPStatus, record.ErrorMessage)
	if err != nil {
		return r.handlePostgresError("update download audit", err)
	}
	if result.RowsAffected() == 0 {
		return shareaudit.ErrDownloadNotFound
	}
	return nil
}

const downloadQueryBase = `
	SELECT d.id, d.file_id, d.share_id, d.share_token, d.user_id, d.ip_address, d.user_agent,
		d.country, d.city, d.browser, d.os, d.device_type, d.is_bot, d.started_at,
		d.completed_at, d.bytes_transferred, d.http_status, d.error_message, d.declared_size`

func downloadQueryFilter(query shareaudit.DownloadQuery) (string, []interface{}) {
	clause := " WHERE 1=1"
	var args []interface{}

	if !query.From.IsZero() {
		args = append(args, query.From)
		clause += fmt.Sprintf(" AND d.started_at >= $%d", len(args))
	}
	if !query.To.IsZero() {
		args = append(args, query.To)
		clause += fmt.Sprintf(" AND d.started_at <= $%d", len(args))
	}
	if query.IPAddress != "" {
		args = append(args, query.IPAddress)
		clause += fmt.Sprintf(" AND d.ip_address = $%d", len(args))
	}
	if query.UserID != nil {
		args = append(args, *query.UserID)
		clause += fmt.Sprintf(" AND d.user_id = $%d", len(args))
	}

	args = append(args, query.Limit)
	clause += fmt.Sprintf(" ORDER BY d.started_at DESC LIMIT $%d", len(args))
	return clause, args
}

func (r *Repository) QueryDownloadAudits(ctx context.Context, query shareaudit.DownloadQuery) ([]*shareaudit.DownloadAudit, error) {
	clause, args := downloadQueryFilter(query)
	rows, err := r.db.Query(ctx, downloadQueryBase+" FROM download_audit d"+clause, args...)
	if err != nil {
		return nil, r.handlePostgresError("query download audits", err)
	}
	defer rows.Close()

	var records []*shareaudit.DownloadAudit
	for rows.Next() {
		record := &shareaudit.DownloadAudit{}
		err := rows.Scan(
			&record.ID, &record.FileID, &record.ShareID, &record.ShareToken, &record.UserID,
			&record.IPAddress, &record.UserAgent, &record.Country, &record.City,
			&record.Browser, &record.OS, &record.DeviceType, &record.IsBot,
			&record.StartedAt, &record.CompletedAt, &record.BytesTransferred,
			&record.HTTPStatus, &record.ErrorMessage, &record.DeclaredSize)
		if err != nil {
			return nil, r.handlePostgresError("query download audits", err)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, r.handlePostgresError("query download audits", err)
	}
	return records, nil
}

// OpenDownloadRows returns a forward-only cursor over download rows
// joined with their file and account names. The pgx rows object is
// released by Close, so an abandoned export only costs the rows
// streamed so far.
func (r *Repository) OpenDownloadRows(ctx context.Context, query shareaudit.DownloadQuery) (shareaudit.DownloadRows, error) {
	clause, args := downloadQueryFilter(query)
	sql := downloadQueryBase + `,
		COALESCE(f.name, ''), COALESCE(u.username, ''), COALESCE(u.full_name, '')
	FROM download_audit d
	LEFT JOIN files f ON f.id = d.file_id
	LEFT JOIN users u ON u.id = d.user_id` + clause

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.handlePostgresError("open download rows", err)
	}
	return &downloadRows{rows: rows}, nil
}

// Activity log operations

func (r *Repository) AppendActivity(ctx context.Context, entry *shareaudit.ActivityEntry) error {
	query := `
		INSERT INTO activity_log (
			id, actor_id, action, entity_type, entity_id, description,
			ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		entry.Description, entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	if err != nil {
		return r.handlePostgresError("append activity", err)
	}
	return nil
}

const activityQueryBase = `
	SELECT a.id, a.actor_id, a.action, a.entity_type, a.entity_id,
		a.description, a.ip_address, a.user_agent, a.created_at`

func activityQueryFilter(query shareaudit.ActivityQuery) (string, []interface{}) {
	clause := " WHERE 1=1"
	var args []interface{}

	if !query.From.IsZero() {
		args = append(args, query.From)
		clause += fmt.Sprintf(" AND a.created_at >= $%d", len(args))
	}
	if !query.To.IsZero() {
		args = append(args, query.To)
		clause += fmt.Sprintf(" AND a.created_at <= $%d", len(args))
	}
	if query.Action != "" {
		args = append(args, query.Action)
		clause += fmt.Sprintf(" AND a.action = $%d", len(args))
	}

	args = append(args, query.Limit)
	clause += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d", len(args))
	args = append(args, query.Offset)
	clause += fmt.Sprintf(" OFFSET $%d", len(args))
	return clause, args
}

func (r *Repository) QueryActivity(ctx context.Context, query shareaudit.ActivityQuery) ([]*shareaudit.ActivityEntry, error) {
	clause, args := activityQueryFilter(query)
	rows, err := r.db.Query(ctx, activityQueryBase+" FROM activity_log a"+clause, args...)
	if err != nil {
		return nil, r.handlePostgresError("query activity", err)
	}
	defer rows.Close()

	var entries []*shareaudit.ActivityEntry
	for rows.Next() {
		entry := &shareaudit.ActivityEntry{}
		err := rows.Scan(
			&entry.ID, &entry.ActorID, &entry.Action, &entry.EntityType, &entry.EntityID,
			&entry.Description, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt)
		if err != nil {
			return nil, r.handlePostgresError("query activity", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, r.handlePostgresError("query activity", err)
	}
	return entries, nil
}

// DistinctActions reads the seen action strings off the indexed action
// column rather than scanning rows.
func (r *Repository) DistinctActions(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT action FROM activity_log ORDER BY action`)
	if err != nil {
		return nil, r.handlePostgresError("distinct actions", err)
	}
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, r.handlePostgresError("distinct actions", err)
		}
		actions = append(actions, action)
	}
	if err = rows.Err(); err != nil {
		return nil, r.handlePostgresError("distinct actions", err)
	}
	return actions, nil
}

func (r *Repository) OpenActivityRows(ctx context.Context, query shareaudit.ActivityQuery) (shareaudit.ActivityRows, error) {
	clause, args := activityQueryFilter(query)
	sql := activityQueryBase + `,
		COALESCE(u.username, '')
	FROM activity_log a
	LEFT JOIN users u ON u.id = a.actor_id` + clause

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.handlePostgresError("open activity rows", err)
	}
	return &activityRows{rows: rows}, nil
}

// Metric sample operations

func (r *Repository) DiskSamplesBetween(ctx context.Context, from, to time.Time) ([]*shareaudit.DiskSample, error) {
	query := `
		SELECT id, recorded_at, used_bytes, total_bytes
		FROM disk_samples
		WHERE recorded_at >= $1 AND recorded_at <= $2
		ORDER BY recorded_at ASC`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, r.handlePostgresError("disk samples between", err)
	}
	defer rows.Close()

	return scanDiskSamples(rows, "disk samples between", r)
}

func (r *Repository) LatestDiskSamples(ctx context.Context, limit int) ([]*shareaudit.DiskSample, error) {
	query := `
		SELECT id, recorded_at, used_bytes, total_bytes
		FROM disk_samples
		ORDER BY recorded_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, r.handlePostgresError("latest disk samples", err)
	}
	defer rows.Close()

	return scanDiskSamples(rows, "latest disk samples", r)
}

func scanDiskSamples(rows pgx.Rows, operation string, r *Repository) ([]*shareaudit.DiskSample, error) {
	var samples []*shareaudit.DiskSample
	for rows.Next() {
		sample := &shareaudit.DiskSample{}
		if err := rows.Scan(&sample.ID, &sample.RecordedAt, &sample.UsedBytes, &sample.TotalBytes); err != nil {
			return nil, r.handlePostgresError(operation, err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	return samples, nil
}

func (r *Repository) RecordDiskSample(ctx context.Context, sample *shareaudit.DiskSample) error {
	query := `
		INSERT INTO disk_samples (id, recorded_at, used_bytes, total_bytes)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, sample.ID, sample.RecordedAt, sample.UsedBytes, sample.TotalBytes)
	if err != nil {
		return r.handlePostgresError("record disk sample", err)
	}
	return nil
}

func (r *Repository) UploadStatsBetween(ctx context.Context, from, to time.Time) ([]*shareaudit.UploadDailyStat, error) {
	query := `
		SELECT day, upload_count, total_size_bytes, unique_users
		FROM upload_daily_stats
		WHERE day >= $1 AND day <= $2
		ORDER BY day ASC`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, r.handlePostgresError("upload stats between", err)
	}
	defer rows.Close()

	var stats []*shareaudit.UploadDailyStat
	for rows.Next() {
		stat := &shareaudit.UploadDailyStat{}
		if err := rows.Scan(&stat.Date, &stat.UploadCount, &stat.TotalSizeBytes, &stat.UniqueUsers); err != nil {
			return nil, r.handlePostgresError("upload stats between", err)
		}
		stats = append(stats, stat)
	}
	if err = rows.Err(); err != nil {
		return nil, r.handlePostgresError("upload stats between", err)
	}
	return stats, nil
}

func (r *Repository) UpsertUploadDailyStat(ctx context.Context, stat *shareaudit.UploadDailyStat) error {
	query := `
		INSERT INTO upload_daily_stats (day, upload_count, total_size_bytes, unique_users)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day) DO UPDATE
		SET upload_count = EXCLUDED.upload_count,
			total_size_bytes = EXCLUDED.total_size_bytes,
			unique_users = EXCLUDED.unique_users`

	_, err := r.db.Exec(ctx, query, stat.Date, stat.UploadCount, stat.TotalSizeBytes, stat.UniqueUsers)
	if err != nil {
		return r.handlePostgresError("upsert upload daily stat", err)
	}
	return nil
}

// Settings operations

func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shareaudit.ErrSettingNotFound
		}
		return "", r.handlePostgresError("get setting", err)
	}
	return value, nil
}

func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	_, err := r.db.Exec(ctx, query, key, value)
	if err != nil {
		return r.handlePostgresError("set setting", err)
	}
	return nil
}

// Account and invitation lookups

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*shareaudit.Account, error) {
	query := `
		SELECT id, username, COALESCE(full_name, ''), is_admin, created_at
		FROM users WHERE id = $1`

	account := &shareaudit.Account{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&account.ID, &account.Username, &account.FullName, &account.IsAdmin, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shareaudit.ErrAccountNotFound
		}
		return nil, r.handlePostgresError("get account", err)
	}
	return account, nil
}

func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*shareaudit.Account, error) {
	query := `
		SELECT id, username, COALESCE(full_name, ''), is_admin, created_at
		FROM users WHERE lower(username) = lower($1)`

	account := &shareaudit.Account{}
	err := r.db.QueryRow(ctx, query, username).Scan(
		&account.ID, &account.Username, &account.FullName, &account.IsAdmin, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shareaudit.ErrAccountNotFound
		}
		return nil, r.handlePostgresError("get account by username", err)
	}
	return account, nil
}

func (r *Repository) GetInvitationByUsername(ctx context.Context, username string) (*shareaudit.Invitation, error) {
	query := `
		SELECT id, email, forced_username, revoked, used_at, created_at
		FROM invitations WHERE lower(forced_username) = lower($1)
		ORDER BY created_at DESC
		LIMIT 1`

	invitation := &shareaudit.Invitation{}
	err := r.db.QueryRow(ctx, query, username).Scan(
		&invitation.ID, &invitation.Email, &invitation.ForcedUsername,
		&invitation.Revoked, &invitation.UsedAt, &invitation.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shareaudit.ErrInvitationNotFound
		}
		return nil, r.handlePostgresError("get invitation by username", err)
	}
	return invitation, nil
}

func (r *Repository) GetFileInfo(ctx context.Context, id uuid.UUID) (*shareaudit.FileInfo, error) {
	query := `
		SELECT id, name, size_bytes, path, mime_type
		FROM files WHERE id = $1`

	file := &shareaudit.FileInfo{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&file.ID, &file.Name, &file.SizeBytes, &file.Path, &file.MimeType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shareaudit.ErrFileNotFound
		}
		return nil, r.handlePostgresError("get file info", err)
	}
	return file, nil
}
