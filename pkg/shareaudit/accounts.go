package shareaudit

import (
	"context"
	"errors"
	"strings"
)

// UsernameExists probes whether a username is already taken. A row in
// the users table always wins; an invitation's forced username counts
// only while the invitation is neither revoked nor used. Empty input is
// resolved as a negative result, not an error.
func (s *service) UsernameExists(ctx context.Context, username string) UsernameCheck {
	username = strings.TrimSpace(username)
	if username == "" {
		return UsernameCheck{Exists: false, Error: UsernameCheckErrorEmpty}
	}

	account, err := s.repository.GetAccountByUsername(ctx, username)
	switch {
	case err == nil && account != nil:
		return UsernameCheck{Exists: true, Where: UsernameFoundInUsers}
	case err != nil && !errors.Is(err, ErrAccountNotFound):
		s.sink.ReportFailure(ctx, "accounts.username_exists", err)
		return UsernameCheck{Exists: false, Error: UsernameCheckErrorDB}
	}

	invitation, err := s.repository.GetInvitationByUsername(ctx, username)
	switch {
	case err == nil && invitation != nil && invitation.Active():
		return UsernameCheck{Exists: true, Where: UsernameFoundInInvitations}
	case err != nil && !errors.Is(err, ErrInvitationNotFound):
		s.sink.ReportFailure(ctx, "accounts.username_exists", err)
		return UsernameCheck{Exists: false, Error: UsernameCheckErrorDB}
	}

	return UsernameCheck{Exists: false}
}
