// Package services contains the application services of the diary client:
// the authenticated session, the remote diary repository, image sync, the
// diary edit session and the home feed.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/auth"
	"github.com/dmitrijs2005/gophdiary/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/dbx"
)

// UserProvider reports the currently authenticated user.
type UserProvider interface {
	CurrentUser() (string, bool)
}

// AuthService manages the user session.
//
// Contract:
//   - Login: verify the token and persist the session.
//   - Restore: reload a persisted session at startup; expired or invalid
//     sessions are cleared.
//   - Logout: forget the session locally.
//   - IssueToken: mint a token for a user id with the shared secret.
type AuthService interface {
	UserProvider
	Login(ctx context.Context, token string) (string, error)
	Restore(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	IssueToken(userID string, validity time.Duration) (string, error)
}

type authService struct {
	db     *sql.DB
	secret []byte

	mu     sync.RWMutex
	userID string
}

func NewAuthService(db *sql.DB, secret []byte) AuthService {
	return &authService{db: db, secret: secret}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) CurrentUser() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID, a.userID != ""
}

func (a *authService) setUser(id string) {
	a.mu.Lock()
	a.userID = id
	a.mu.Unlock()
}

// Login verifies token, stores user id and token in a single transaction and
// makes the user current.
func (a *authService) Login(ctx context.Context, token string) (string, error) {
	userID, err := auth.GetUserIDFromToken(token, a.secret)
	if err != nil {
		return "", fmt.Errorf("login error: %w", err)
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		if err := repo.Set(ctx, common.SessionUserKey, []byte(userID)); err != nil {
			return err
		}
		return repo.Set(ctx, common.SessionTokenKey, []byte(token))
	})
	if err != nil {
		return "", fmt.Errorf("session saving error: %w", err)
	}

	a.setUser(userID)
	return userID, nil
}

// Restore returns the restored user id, or "" with a nil error when no
// session was stored.
func (a *authService) Restore(ctx context.Context) (string, error) {
	token, err := a.getMetadataRepo(a.db).Get(ctx, common.SessionTokenKey)
	if err != nil {
		return "", fmt.Errorf("session loading error: %w", err)
	}
	if token == nil {
		return "", nil
	}

	userID, err := auth.GetUserIDFromToken(string(token), a.secret)
	if err != nil {
		if cerr := a.clearSession(ctx); cerr != nil {
			return "", errors.Join(err, cerr)
		}
		return "", err
	}

	a.setUser(userID)
	return userID, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.setUser("")
	return a.clearSession(ctx)
}

func (a *authService) clearSession(ctx context.Context) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		if err := repo.Delete(ctx, common.SessionUserKey); err != nil {
			return err
		}
		return repo.Delete(ctx, common.SessionTokenKey)
	})
}

func (a *authService) IssueToken(userID string, validity time.Duration) (string, error) {
	return auth.GenerateToken(userID, a.secret, validity)
}
