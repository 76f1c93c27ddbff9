package shareaudit

import (
	"context"
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"strconv"

	"github.com/google/uuid"
)

// utf8BOM prefixes the delimited export so legacy spreadsheet software
// detects the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// activityCSVHeader is the fixed column order of the delimited export.
var activityCSVHeader = []string{
	"created_at", "username", "action", "entity_type",
	"entity_id", "description", "ip_address", "user_agent",
}

// workbookColumns is the fixed column order of the legacy spreadsheet
// export.
var workbookColumns = []string{
	"ID", "Filename", "Username", "Full Name", "IP Address",
	"Country", "City", "Browser", "OS", "Device Type",
	"Bot", "Shared", "Share Token", "File Size", "Completed",
	"Bytes Transferred", "Started At", "Completed At",
	"Duration (s)", "User Agent",
}

const exportTimestamp = "2006-01-02 15:04:05"

// ExportActivityCSV streams the filtered activity log as delimited text
// with a UTF-8 byte-order-mark prefix. Rows are written incrementally
// through a forward-only cursor; the document is never buffered
// wholesale.
func (s *service) ExportActivityCSV(ctx context.Context, query ActivityQuery, w io.Writer) error {
	if query.Limit <= 0 || query.Limit > MaxActivityRows {
		query.Limit = MaxActivityRows
	}

	rows, err := s.repository.OpenActivityRows(ctx, query)
	if err != nil {
		return &ExportError{Format: "csv", Op: "open", Err: err}
	}
	defer rows.Close()

	if _, err := w.Write(utf8BOM); err != nil {
		return &ExportError{Format: "csv", Op: "write", Err: err}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(activityCSVHeader); err != nil {
		return &ExportError{Format: "csv", Op: "write", Err: err}
	}

	written := 0
	for rows.Next() {
		row, err := rows.Row()
		if err != nil {
			return &ExportError{Format: "csv", Op: "scan", Err: err}
		}

		record := []string{
			row.CreatedAt.UTC().Format(exportTimestamp),
			row.ActorName,
			row.Action,
			row.EntityType,
			uuidPtrString(row.EntityID),
			row.Description,
			row.IPAddress,
			row.UserAgent,
		}
		if err := cw.Write(record); err != nil {
			return &ExportError{Format: "csv", Op: "write", Err: err}
		}

		written++
		if written >= MaxActivityRows {
			break
		}
		if written%500 == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return &ExportError{Format: "csv", Op: "flush", Err: err}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return &ExportError{Format: "csv", Op: "iterate", Err: err}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return &ExportError{Format: "csv", Op: "flush", Err: err}
	}
	return nil
}

// ExportDownloadsWorkbook streams the filtered download audit ledger as
// an HTML table carrying vendor workbook metadata, which legacy desktop
// spreadsheet software opens as a native workbook. Every data cell is
// HTML-escaped. Pending records are rendered as incomplete: the
// completion flag reads as the localized "no" and the duration cell
// stays empty, never as a failure.
func (s *service) ExportDownloadsWorkbook(ctx context.Context, query DownloadQuery, w io.Writer) error {
	if query.Limit <= 0 || query.Limit > MaxDownloadRows {
		query.Limit = MaxDownloadRows
	}

	rows, err := s.repository.OpenDownloadRows(ctx, query)
	if err != nil {
		return &ExportError{Format: "workbook", Op: "open", Err: err}
	}
	defer rows.Close()

	if err := writeWorkbookHeader(w, "Downloads"); err != nil {
		return &ExportError{Format: "workbook", Op: "write", Err: err}
	}

	written := 0
	for rows.Next() {
		row, err := rows.Row()
		if err != nil {
			return &ExportError{Format: "workbook", Op: "scan", Err: err}
		}

		if err := s.writeWorkbookRow(w, row); err != nil {
			return &ExportError{Format: "workbook", Op: "write", Err: err}
		}

		written++
		if written >= MaxDownloadRows {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return &ExportError{Format: "workbook", Op: "iterate", Err: err}
	}

	if _, err := io.WriteString(w, "</table>\n</body>\n</html>\n"); err != nil {
		return &ExportError{Format: "workbook", Op: "write", Err: err}
	}
	return nil
}

// writeWorkbookHeader emits the vendor-specific workbook preamble and
// the header row. The mso conditional block is what makes legacy
// spreadsheet software treat the HTML payload as a workbook.
func writeWorkbookHeader(w io.Writer, sheetName string) error {
	preamble := `<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:x="urn:schemas-microsoft-com:office:excel">
<head>
<meta http-equiv="Content-Type" content="text/html; charset=utf-8">
<!--[if gte mso 9]><xml>
<x:ExcelWorkbook>
<x:ExcelWorksheets>
<x:ExcelWorksheet>
<x:Name>` + html.EscapeString(sheetName) + `</x:Name>
<x:WorksheetOptions>
<x:Print><x:ValidPrinterInfo/></x:Print>
</x:WorksheetOptions>
</x:ExcelWorksheet>
</x:ExcelWorksheets>
</x:ExcelWorkbook>
</xml><![endif]-->
</head>
<body>
<table border="1">
`
	if _, err := io.WriteString(w, preamble); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "<tr>"); err != nil {
		return err
	}
	for _, col := range workbookColumns {
		if _, err := fmt.Fprintf(w, "<th>%s</th>", html.EscapeString(col)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</tr>\n")
	return err
}

func (s *service) writeWorkbookRow(w io.Writer, row *DownloadExportRow) error {
	username := row.Username
	if username == "" {
		username = s.labels.Anonymous
	}

	completed := ""
	duration := ""
	if row.CompletedAt != nil {
		completed = row.CompletedAt.UTC().Format(exportTimestamp)
		if secs, ok := row.DurationSeconds(); ok {
			duration = strconv.FormatInt(secs, 10)
		}
	}

	cells := []string{
		row.ID.String(),
		row.FileName,
		username,
		row.FullName,
		row.IPAddress,
		row.Country,
		row.City,
		row.Browser,
		row.OS,
		row.DeviceType,
		s.yesNo(row.IsBot),
		s.yesNo(row.ShareID != nil),
		row.ShareToken,
		strconv.FormatInt(row.DeclaredSize, 10),
		s.yesNo(row.CompletedAt != nil),
		strconv.FormatInt(row.BytesTransferred, 10),
		row.StartedAt.UTC().Format(exportTimestamp),
		completed,
		duration,
		row.UserAgent,
	}

	if _, err := io.WriteString(w, "<tr>"); err != nil {
		return err
	}
	for _, cell := range cells {
		if _, err := fmt.Fprintf(w, "<td>%s</td>", html.EscapeString(cell)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</tr>\n")
	return err
}

func (s *service) yesNo(v bool) string {
	if v {
		return s.labels.Yes
	}
	return s.labels.No
}

func uuidPtrString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
