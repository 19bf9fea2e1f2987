// Package services contains the server-side business logic behind the
// HTTP handlers: registration and login, campgrounds and reviews.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/server/auth"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/repomanager"
)

const msgUserExists = "A user with the given username is already registered"

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	verifier    auth.CredentialVerifier
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		verifier:    auth.NewLocalVerifier(m.Users(db)),
	}
}

// Register creates a principal. A taken username or email is reported as a
// validation failure; nothing is created in that case.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, &models.User{UserName: in.Username, Email: in.Email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewValidationError(msgUserExists)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login returns the principal for valid credentials and
// common.ErrorBadCredentials otherwise.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, error) {
	return s.verifier.Verify(ctx, strings.TrimSpace(username), password)
}

// GetByID resolves a session's principal reference.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}
