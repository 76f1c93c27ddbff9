package shareaudit_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

func TestExportActivityCSV(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	actorID := uuid.New()
	repo.AddAccount(&shareaudit.Account{ID: actorID, Username: "alice", FullName: "Alice Example"})

	entityID := uuid.New()
	require.NoError(t, repo.AppendActivity(ctx, &shareaudit.ActivityEntry{
		ID:          uuid.New(),
		ActorID:     &actorID,
		Action:      "file.delete",
		EntityType:  "file",
		EntityID:    &entityID,
		Description: `removed "quarterly, final".pdf`,
		IPAddress:   "203.0.113.5",
		UserAgent:   "Mozilla/5.0",
		CreatedAt:   time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
	}))

	var buf bytes.Buffer
	require.NoError(t, svc.ExportActivityCSV(ctx, shareaudit.ActivityQuery{}, &buf))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "export starts with the UTF-8 BOM")

	reader := csv.NewReader(bytes.NewReader(raw[3:]))
	records, err := reader.ReadAll()
	require.NoError(t, err, "quoting survives a round trip through a csv reader")
	require.Len(t, records, 2)

	assert.Equal(t, []string{
		"created_at", "username", "action", "entity_type",
		"entity_id", "description", "ip_address", "user_agent",
	}, records[0])

	row := records[1]
	assert.Equal(t, "2024-06-01 09:30:00", row[0])
	assert.Equal(t, "alice", row[1])
	assert.Equal(t, "file.delete", row[2])
	assert.Equal(t, entityID.String(), row[4])
	assert.Equal(t, `removed "quarterly, final".pdf`, row[5], "commas and quotes come back intact")
}

func TestExportActivityCSVEmptyLog(t *testing.T) {
	svc, _ := newTestService(t)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportActivityCSV(context.Background(), shareaudit.ActivityQuery{}, &buf))

	reader := csv.NewReader(bytes.NewReader(buf.Bytes()[3:]))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1, "header only, no data rows")
}

func TestExportActivityCSVActionFilter(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	for _, action := range []string{"share.create", "file.upload", "share.create"} {
		require.NoError(t, repo.AppendActivity(ctx, &shareaudit.ActivityEntry{
			ID: uuid.New(), Action: action, EntityType: "x", CreatedAt: time.Now().UTC(),
		}))
	}

	var buf bytes.Buffer
	require.NoError(t, svc.ExportActivityCSV(ctx, shareaudit.ActivityQuery{Action: "share.create"}, &buf))

	reader := csv.NewReader(bytes.NewReader(buf.Bytes()[3:]))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3, "header plus the two matching rows")
}

func seedDownloadRow(t *testing.T, repo shareaudit.Repository, record *shareaudit.DownloadAudit) {
	t.Helper()
	require.NoError(t, repo.CreateDownloadAudit(context.Background(), record))
}

func TestExportDownloadsWorkbook(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	fileID := uuid.New()
	userID := uuid.New()
	shareID := uuid.New()
	completedAt := time.Date(2024, 6, 1, 10, 0, 42, 0, time.UTC)

	repo.AddFileInfo(&shareaudit.FileInfo{ID: fileID, Name: "Q2 <report>.xlsx", SizeBytes: 2048})
	repo.AddAccount(&shareaudit.Account{ID: userID, Username: "bob", FullName: "Bob & Sons"})

	seedDownloadRow(t, repo, &shareaudit.DownloadAudit{
		ID:               uuid.New(),
		FileID:           fileID,
		UserID:           &userID,
		ShareID:          &shareID,
		ShareToken:       "tok-123",
		DeclaredSize:     2048,
		BytesTransferred: 2048,
		IPAddress:        "198.51.100.20",
		UserAgent:        "Mozilla/5.0",
		Country:          "DE",
		City:             "Berlin",
		Browser:          "Firefox",
		OS:               "Linux",
		DeviceType:       "desktop",
		IsBot:            false,
		StartedAt:        time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		CompletedAt:      &completedAt,
	})

	var buf bytes.Buffer
	require.NoError(t, svc.ExportDownloadsWorkbook(ctx, shareaudit.DownloadQuery{}, &buf))
	out := buf.String()

	assert.Contains(t, out, `xmlns:x="urn:schemas-microsoft-com:office:excel"`)
	assert.Contains(t, out, "<!--[if gte mso 9]><xml>")
	assert.Contains(t, out, "<x:Name>Downloads</x:Name>")
	assert.Contains(t, out, "<x:ExcelWorksheet>")
	assert.True(t, strings.HasSuffix(out, "</table>\n</body>\n</html>\n"))

	assert.Equal(t, 20, strings.Count(out, "<th>"), "header carries every ledger column")

	assert.Contains(t, out, "<td>Q2 &lt;report&gt;.xlsx</td>", "cell content is escaped")
	assert.Contains(t, out, "<td>Bob &amp; Sons</td>")
	assert.Contains(t, out, "<td>bob</td>")
	assert.Contains(t, out, "<td>tok-123</td>")
	assert.Contains(t, out, "<td>2024-06-01 10:00:42</td>")
	assert.Contains(t, out, "<td>42</td>", "duration in whole seconds")
	assert.NotContains(t, out, "<report>", "raw markup never reaches the document")
}

func TestExportDownloadsWorkbookPendingRow(t *testing.T) {
	svc, repo := newTestService(t)

	seedDownloadRow(t, repo, &shareaudit.DownloadAudit{
		ID:        uuid.New(),
		FileID:    uuid.New(),
		IPAddress: "198.51.100.21",
		UserAgent: "Mozilla/5.0",
		StartedAt: time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
	})

	var buf bytes.Buffer
	require.NoError(t, svc.ExportDownloadsWorkbook(context.Background(), shareaudit.DownloadQuery{}, &buf))
	out := buf.String()

	assert.Contains(t, out, "<td>Anonymous</td>", "missing user renders as the localized anonymous label")
	assert.Contains(t, out, "<td>No</td>", "pending renders as not-completed, never as failed")

	// The completed-at and duration cells of a pending row stay empty.
	dataRow := out[strings.Index(out, "</tr>\n<tr>"):]
	assert.Contains(t, dataRow, "<td></td><td></td><td>Mozilla")
}

func TestExportDownloadsWorkbookLocalizedLabels(t *testing.T) {
	repoLabels := shareaudit.ExportLabels{Yes: "Sí", No: "No", Anonymous: "Anónimo"}
	svc, repo := newTestService(t, shareaudit.WithExportLabels(repoLabels))

	seedDownloadRow(t, repo, &shareaudit.DownloadAudit{
		ID:        uuid.New(),
		FileID:    uuid.New(),
		IsBot:     true,
		StartedAt: time.Now().UTC(),
	})

	var buf bytes.Buffer
	require.NoError(t, svc.ExportDownloadsWorkbook(context.Background(), shareaudit.DownloadQuery{}, &buf))
	out := buf.String()

	assert.Contains(t, out, "<td>Sí</td>")
	assert.Contains(t, out, "<td>Anónimo</td>")
}
