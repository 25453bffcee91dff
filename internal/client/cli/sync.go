package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/annosync/internal/client/syncstate"
	"github.com/dmitrijs2005/annosync/internal/common"
)

// Sync runs a full upload and download pass now.
func (a *App) Sync(ctx context.Context, _ []string) error {
	enabled, err := a.accounts.SyncEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		fmt.Fprintln(a.out, "Sync is disabled, run 'enable' first")
		return nil
	}

	creds, err := a.accounts.Credentials(ctx)
	if err != nil {
		return err
	}
	if !creds.Valid() {
		fmt.Fprintln(a.out, "Not logged in, run 'login' first")
		return nil
	}

	return a.runSync(ctx)
}

func (a *App) runSync(ctx context.Context) error {
	err := a.engine.InitSync(ctx)
	if errors.Is(err, common.ErrSyncInProgress) {
		fmt.Fprintln(a.out, "A sync pass is already running")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Sync done")
	return nil
}

// Status prints the account, the feature flag and the persisted sync state.
func (a *App) Status(ctx context.Context, _ []string) error {
	creds, err := a.accounts.Credentials(ctx)
	if err != nil {
		return err
	}
	enabled, err := a.accounts.SyncEnabled(ctx)
	if err != nil {
		return err
	}
	st, err := a.state.Get(ctx)
	if err != nil {
		return err
	}

	account := "not logged in"
	if creds.Valid() {
		account = creds.Username
	}

	fmt.Fprintf(a.out, "Account:       %s\n", account)
	fmt.Fprintf(a.out, "Sync enabled:  %t\n", enabled)
	fmt.Fprintf(a.out, "Engine:        %s\n", a.engine.Phase())
	fmt.Fprintf(a.out, "Last upload:   %s\n", orNever(st.LastUploadTimestamp))
	fmt.Fprintf(a.out, "Last download: %s\n", orNever(st.LastDownloadTimestamp))
	if st.IsSyncing {
		fmt.Fprintln(a.out, "A pass is marked as running")
	}
	return nil
}

func orNever(ts string) string {
	if ts == "" {
		return "never"
	}
	t, err := syncstate.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
