package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

// downloadRows adapts pgx.Rows to the shareaudit.DownloadRows cursor.
type downloadRows struct {
	rows pgx.Rows
}

func (r *downloadRows) Next() bool { return r.rows.Next() }

func (r *downloadRows) Row() (*shareaudit.DownloadExportRow, error) {
	row := &shareaudit.DownloadExportRow{}
	err := r.rows.Scan(
		&row.ID, &row.FileID, &row.ShareID, &row.ShareToken, &row.UserID,
		&row.IPAddress, &row.UserAgent, &row.Country, &row.City,
		&row.Browser, &row.OS, &row.DeviceType, &row.IsBot,
		&row.StartedAt, &row.CompletedAt, &row.BytesTransferred,
		&row.HTTPStatus, &row.ErrorMessage, &row.DeclaredSize,
		&row.FileName, &row.Username, &row.FullName)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *downloadRows) Err() error { return r.rows.Err() }

func (r *downloadRows) Close() { r.rows.Close() }

// activityRows adapts pgx.Rows to the shareaudit.ActivityRows cursor.
type activityRows struct {
	rows pgx.Rows
}

func (r *activityRows) Next() bool { return r.rows.Next() }

func (r *activityRows) Row() (*shareaudit.ActivityExportRow, error) {
	row := &shareaudit.ActivityExportRow{}
	err := r.rows.Scan(
		&row.ID, &row.ActorID, &row.Action, &row.EntityType, &row.EntityID,
		&row.Description, &row.IPAddress, &row.UserAgent, &row.CreatedAt,
		&row.ActorName)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *activityRows) Err() error { return r.rows.Err() }

func (r *activityRows) Close() { r.rows.Close() }
