package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/annosync/internal/common"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// Login asks for the hypothes.is username (unless given as an argument) and
// the API token, verifies them against the service and stores them. When
// sync is enabled a sync pass follows right away.
func (a *App) Login(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		var err error
		if username, err = getSimpleText(a.reader, "Enter hypothes.is username", a.out); err != nil {
			return err
		}
	}

	token, err := getSecret(a.out, "Enter API token")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(token)

	if err := a.accounts.Login(ctx, username, token); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return fmt.Errorf("hypothes.is rejected the token: %w", err)
		}
		return err
	}

	a.username = username
	fmt.Fprintf(a.out, "Logged in as %s\n", username)

	return a.syncIfEnabled(ctx)
}

// Logout forgets the stored credentials. Live sync stops at the next
// change since the engine re-reads credentials every time.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.accounts.ClearCredentials(ctx); err != nil {
		return err
	}
	a.username = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Enable(ctx context.Context, _ []string) error {
	if err := a.accounts.SetSyncEnabled(ctx, true); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Annotation sync enabled")
	return a.syncIfEnabled(ctx)
}

func (a *App) Disable(ctx context.Context, _ []string) error {
	if err := a.accounts.SetSyncEnabled(ctx, false); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Annotation sync disabled")
	return nil
}

func (a *App) syncIfEnabled(ctx context.Context) error {
	enabled, err := a.accounts.SyncEnabled(ctx)
	if err != nil || !enabled {
		return err
	}
	creds, err := a.accounts.Credentials(ctx)
	if err != nil {
		return err
	}
	if !creds.Valid() {
		fmt.Fprintln(a.out, "Log in to start syncing")
		return nil
	}
	return a.runSync(ctx)
}
