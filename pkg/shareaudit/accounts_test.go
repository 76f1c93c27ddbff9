package shareaudit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matatunos/shareaudit/pkg/shareaudit"
	"github.com/matatunos/shareaudit/pkg/shareaudit/repo/memory"
)

func TestUsernameExists(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	usedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	repo.AddAccount(&shareaudit.Account{ID: uuid.New(), Username: "alice"})
	repo.AddInvitation(&shareaudit.Invitation{ID: uuid.New(), ForcedUsername: "bob"})
	repo.AddInvitation(&shareaudit.Invitation{ID: uuid.New(), ForcedUsername: "carol", Revoked: true})
	repo.AddInvitation(&shareaudit.Invitation{ID: uuid.New(), ForcedUsername: "dave", UsedAt: &usedAt})

	tests := []struct {
		name     string
		username string
		want     shareaudit.UsernameCheck
	}{
		{"existing account", "alice", shareaudit.UsernameCheck{Exists: true, Where: shareaudit.UsernameFoundInUsers}},
		{"pending invitation", "bob", shareaudit.UsernameCheck{Exists: true, Where: shareaudit.UsernameFoundInInvitations}},
		{"revoked invitation does not reserve", "carol", shareaudit.UsernameCheck{Exists: false}},
		{"used invitation does not reserve", "dave", shareaudit.UsernameCheck{Exists: false}},
		{"free username", "erin", shareaudit.UsernameCheck{Exists: false}},
		{"case insensitive match", "ALICE", shareaudit.UsernameCheck{Exists: true, Where: shareaudit.UsernameFoundInUsers}},
		{"surrounding whitespace is trimmed", "  alice  ", shareaudit.UsernameCheck{Exists: true, Where: shareaudit.UsernameFoundInUsers}},
		{"empty input", "", shareaudit.UsernameCheck{Exists: false, Error: shareaudit.UsernameCheckErrorEmpty}},
		{"whitespace only input", "   ", shareaudit.UsernameCheck{Exists: false, Error: shareaudit.UsernameCheckErrorEmpty}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.UsernameExists(ctx, tt.username))
		})
	}
}

func TestUsernameExistsAccountWinsOverInvitation(t *testing.T) {
	svc, repo := newTestService(t)

	repo.AddAccount(&shareaudit.Account{ID: uuid.New(), Username: "frank"})
	repo.AddInvitation(&shareaudit.Invitation{ID: uuid.New(), ForcedUsername: "frank"})

	check := svc.UsernameExists(context.Background(), "frank")
	assert.Equal(t, shareaudit.UsernameFoundInUsers, check.Where, "the users table takes precedence")
}

// lookupFailingRepo fails account lookups with a non-sentinel error.
type lookupFailingRepo struct {
	shareaudit.Repository
}

func (f *lookupFailingRepo) GetAccountByUsername(ctx context.Context, username string) (*shareaudit.Account, error) {
	return nil, errStorageDown
}

func TestUsernameExistsStorageFailure(t *testing.T) {
	sink := &captureSink{}
	svc, err := shareaudit.New(
		shareaudit.WithRepository(&lookupFailingRepo{Repository: memory.New()}),
		shareaudit.WithDiagnosticSink(sink),
	)
	require.NoError(t, err)

	check := svc.UsernameExists(context.Background(), "alice")
	assert.Equal(t, shareaudit.UsernameCheck{Exists: false, Error: shareaudit.UsernameCheckErrorDB}, check)
	assert.Equal(t, 1, sink.count())
}
