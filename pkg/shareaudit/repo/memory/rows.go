package memory

import (
	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

// downloadRows is a cursor over a pre-materialized snapshot. The memory
// store has no forward-only iteration, so the snapshot relies on the
// query row caps to bound size.
type downloadRows struct {
	rows []*shareaudit.DownloadExportRow
	pos  int
}

func (r *downloadRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *downloadRows) Row() (*shareaudit.DownloadExportRow, error) {
	return r.rows[r.pos-1], nil
}

func (r *downloadRows) Err() error { return nil }

func (r *downloadRows) Close() {}

type activityRows struct {
	rows []*shareaudit.ActivityExportRow
	pos  int
}

func (r *activityRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *activityRows) Row() (*shareaudit.ActivityExportRow, error) {
	return r.rows[r.pos-1], nil
}

func (r *activityRows) Err() error { return nil }

func (r *activityRows) Close() {}
