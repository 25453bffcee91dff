// Package services contains application services for the annosync CLI.
// This file defines the account service: the sync feature flag and the
// hypothes.is credentials, with the API token sealed at rest.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/annosync/internal/common"
	"github.com/dmitrijs2005/annosync/internal/cryptox"
	"github.com/dmitrijs2005/annosync/internal/dbx"
)

// AccountService defines the account operations of the CLI.
//
// Contract:
//   - Login: verify the token against the remote service, then save it.
//   - Credentials: return the saved credentials, or empty ones if none
//     are saved (not an error).
//   - ClearCredentials: forget username and token.
//   - SetSyncEnabled / SyncEnabled: the feature gate for syncing.
type AccountService interface {
	Login(ctx context.Context, username string, token []byte) error
	SaveCredentials(ctx context.Context, username string, token []byte) error
	Credentials(ctx context.Context) (models.Credentials, error)
	ClearCredentials(ctx context.Context) error
	SetSyncEnabled(ctx context.Context, enabled bool) error
	SyncEnabled(ctx context.Context) (bool, error)
}

// CredentialsVerifier checks credentials against the remote service.
type CredentialsVerifier interface {
	VerifyCredentials(ctx context.Context, creds models.Credentials) error
}

type accountService struct {
	db        *sql.DB
	deviceKey []byte
	verifier  CredentialsVerifier
}

// NewAccountService binds the service to the local database. deviceKey is the
// per-installation secret the token sealing key is derived from.
func NewAccountService(db *sql.DB, deviceKey []byte, verifier CredentialsVerifier) AccountService {
	return &accountService{db: db, deviceKey: deviceKey, verifier: verifier}
}

func (s *accountService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

func (s *accountService) Login(ctx context.Context, username string, token []byte) error {
	if username == "" || len(token) == 0 {
		return common.ErrInvalidToken
	}

	creds := models.Credentials{Username: username, APIToken: string(token)}
	if err := s.verifier.VerifyCredentials(ctx, creds); err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}

	return s.SaveCredentials(ctx, username, token)
}

// SaveCredentials stores username in clear and the token sealed under a key
// derived from the device key and a fresh salt, in a single transaction.
func (s *accountService) SaveCredentials(ctx context.Context, username string, token []byte) error {
	if username == "" || len(token) == 0 {
		return common.ErrInvalidToken
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key := cryptox.DeriveKey(s.deviceKey, salt)
	defer common.WipeByteArray(key)

	sealed, err := cryptox.Seal(token, key)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.MetadataKeyUsername, []byte(username)); err != nil {
			return err
		}
		if err := repo.Set(ctx, common.MetadataKeyTokenSalt, salt); err != nil {
			return err
		}
		return repo.Set(ctx, common.MetadataKeyToken, sealed)
	})
}

func (s *accountService) Credentials(ctx context.Context) (models.Credentials, error) {
	values, err := s.getMetadataRepo().GetMany(ctx,
		common.MetadataKeyUsername,
		common.MetadataKeyTokenSalt,
		common.MetadataKeyToken,
	)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}

	username := values[common.MetadataKeyUsername]
	salt := values[common.MetadataKeyTokenSalt]
	sealed := values[common.MetadataKeyToken]
	if len(username) == 0 || len(salt) == 0 || len(sealed) == 0 {
		return models.Credentials{}, nil
	}

	key := cryptox.DeriveKey(s.deviceKey, salt)
	defer common.WipeByteArray(key)

	token, err := cryptox.Open(sealed, key)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("%w: %w", common.ErrCorruptedToken, err)
	}

	return models.Credentials{Username: string(username), APIToken: string(token)}, nil
}

func (s *accountService) ClearCredentials(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for _, key := range []string{common.MetadataKeyUsername, common.MetadataKeyTokenSalt, common.MetadataKeyToken} {
			if err := repo.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *accountService) SetSyncEnabled(ctx context.Context, enabled bool) error {
	return s.getMetadataRepo().Set(ctx, common.MetadataKeySyncEnabled, []byte(strconv.FormatBool(enabled)))
}

// SyncEnabled defaults to false when the flag was never set.
func (s *accountService) SyncEnabled(ctx context.Context) (bool, error) {
	v, err := s.getMetadataRepo().Get(ctx, common.MetadataKeySyncEnabled)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	enabled, err := strconv.ParseBool(string(v))
	if err != nil {
		return false, fmt.Errorf("bad %s value %q: %w", common.MetadataKeySyncEnabled, v, err)
	}
	return enabled, nil
}
