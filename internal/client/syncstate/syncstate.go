// Package syncstate persists the sync watermarks and the in-progress marker
// in the metadata table.
//
// The store does not validate or order timestamps; keeping them monotonic is
// the caller's job. Update is a shallow merge: only fields set in the patch
// are written, all of them in one transaction.
package syncstate

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/annosync/internal/common"
	"github.com/dmitrijs2005/annosync/internal/dbx"
)

// Store reads and writes the persisted SyncState.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context) (models.SyncState, error) {
	var st models.SyncState

	values, err := metadata.NewSQLiteRepository(s.db).GetMany(ctx,
		common.MetadataKeyLastUpload,
		common.MetadataKeyLastDownload,
		common.MetadataKeyIsSyncing,
	)
	if err != nil {
		return st, fmt.Errorf("load sync state: %w", err)
	}

	st.LastUploadTimestamp = string(values[common.MetadataKeyLastUpload])
	st.LastDownloadTimestamp = string(values[common.MetadataKeyLastDownload])

	if v, ok := values[common.MetadataKeyIsSyncing]; ok {
		st.IsSyncing, err = strconv.ParseBool(string(v))
		if err != nil {
			return st, fmt.Errorf("load sync state: bad %s value %q: %w", common.MetadataKeyIsSyncing, v, err)
		}
	}

	return st, nil
}

func (s *Store) Update(ctx context.Context, patch models.SyncStatePatch) error {
	if patch.LastUploadTimestamp == nil && patch.LastDownloadTimestamp == nil && patch.IsSyncing == nil {
		return nil
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		if patch.LastUploadTimestamp != nil {
			if err := repo.Set(ctx, common.MetadataKeyLastUpload, []byte(*patch.LastUploadTimestamp)); err != nil {
				return err
			}
		}
		if patch.LastDownloadTimestamp != nil {
			if err := repo.Set(ctx, common.MetadataKeyLastDownload, []byte(*patch.LastDownloadTimestamp)); err != nil {
				return err
			}
		}
		if patch.IsSyncing != nil {
			if err := repo.Set(ctx, common.MetadataKeyIsSyncing, []byte(strconv.FormatBool(*patch.IsSyncing))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update sync state: %w", err)
	}
	return nil
}

// FormatTimestamp renders t the way watermarks are persisted:
// "Mon, 02 Jan 2006 15:04:05 GMT".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// ParseTimestamp is the inverse of FormatTimestamp. The empty string parses
// to the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := http.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse watermark %q: %w", s, err)
	}
	return t.UTC(), nil
}

// UnixSeconds returns t as unix seconds, treating the zero time as 0 so an
// unset watermark admits every record.
func UnixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
