package auth

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
)

// CredentialVerifier authenticates a principal from submitted credentials.
// Local username/password is the only strategy today; others plug in here.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*models.User, error)
}

// UserLookup is the part of the users repository the local verifier needs.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// LocalVerifier checks a username/password pair against stored bcrypt hashes.
type LocalVerifier struct {
	users UserLookup
	// dummyHash is compared against when the user does not exist, so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

func NewLocalVerifier(users UserLookup) *LocalVerifier {
	h, _ := HashPassword("not-a-real-password")
	return &LocalVerifier{users: users, dummyHash: h}
}

// Verify returns the user on success, common.ErrorBadCredentials when the
// username is unknown or the password is wrong, and a wrapped error when
// the lookup itself fails.
func (v *LocalVerifier) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			CheckPassword(v.dummyHash, password)
			return nil, common.ErrorBadCredentials
		}
		return nil, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrorBadCredentials
	}

	return user, nil
}
