package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/client/session"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and bootstraps the session.
//
// The password byte slice is wiped before returning. When the exchange
// succeeded but a later step failed, the user is told which part of the
// session is missing: the tokens are already stored at that point.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	verification, err := getSimpleText(a.reader, "Enter verification token (empty if none)", a.out)
	if err != nil {
		return err
	}

	_, identity, err := a.session.Login(ctx, email, string(password), verification)
	if err != nil {
		a.reportBootstrapFailure(ctx, "Login", err)
		return err
	}

	a.userName = displayName(identity, email)
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Register sends the registration mail, asks for the code from it and
// bootstraps the session for the new account.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	verification, err := getSimpleText(a.reader, "Enter verification token (empty if none)", a.out)
	if err != nil {
		return err
	}

	if err := a.account.SendRegisterEmail(ctx, email, verification); err != nil {
		return err
	}

	code, err := getSimpleText(a.reader, "Enter the code from the e-mail", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	_, identity, err := a.session.Register(ctx, userName, email, string(password), code)
	if err != nil {
		a.reportBootstrapFailure(ctx, "Registration", err)
		return err
	}

	a.userName = displayName(identity, userName)
	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Resume restores the stored session.
func (a *App) Resume(ctx context.Context) error {
	identity, err := a.session.Resume(ctx)
	switch {
	case err == nil:
		a.userName = displayName(identity, "")
		fmt.Fprintln(a.out, "Session resumed")
		return nil
	case errors.Is(err, session.ErrNoStoredSession):
		fmt.Fprintln(a.out, "No stored session, please login")
	case errors.Is(err, session.ErrLoginRequired):
		fmt.Fprintln(a.out, "Stored session expired, please login")
	default:
		a.reportBootstrapFailure(ctx, "Resume", err)
	}
	return err
}

// Logout forgets both tokens and drops the realtime channel.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// ForgotPassword sends the reset mail and sets the new password with the
// code from it.
func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	verification, err := getSimpleText(a.reader, "Enter verification token (empty if none)", a.out)
	if err != nil {
		return err
	}
	if err := a.account.SendResetEmail(ctx, email, verification); err != nil {
		return err
	}

	code, err := getSimpleText(a.reader, "Enter the code from the e-mail", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.account.ResetPassword(ctx, email, string(password), code); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed, please login")
	return nil
}

// Status prints the state of the last bootstrap, the session token expiry and
// when the long-term token was saved.
func (a *App) Status(ctx context.Context) error {
	snap := a.session.Snapshot()
	fmt.Fprintf(a.out, "state: %s\n", snap.State)
	if snap.Operation != "" {
		fmt.Fprintf(a.out, "last operation: %s\n", snap.Operation)
	}
	if snap.Kind != session.KindNone {
		fmt.Fprintf(a.out, "failure: %s\n", snap.Kind)
	}
	fmt.Fprintf(a.out, "channel generation: %d\n", snap.Generation)

	if a.sessionToken != nil {
		if exp := tokens.ExpiresAt(a.sessionToken()); !exp.IsZero() {
			fmt.Fprintf(a.out, "session token expires: %s\n", exp.Local().Format(time.RFC3339))
		}
	}
	if a.savedAt != nil {
		at, err := a.savedAt(ctx)
		if err != nil {
			a.log.Warn(ctx, "cli.status.saved_at.fail", "err", err)
		} else if !at.IsZero() {
			fmt.Fprintf(a.out, "long-term token saved: %s\n", at.Local().Format(time.RFC3339))
		}
	}
	return nil
}

func (a *App) reportBootstrapFailure(ctx context.Context, what string, err error) {
	a.log.Warn(ctx, "cli.bootstrap.fail", "what", what, "kind", session.KindOf(err).String(), "err", err)

	switch session.KindOf(err) {
	case session.KindAuth:
		fmt.Fprintf(a.out, "%s failed: %v\n", what, err)
	case session.KindPersistence:
		fmt.Fprintf(a.out, "%s: signed in, but the session could not be saved locally: %v\n", what, err)
	case session.KindChannel:
		fmt.Fprintf(a.out, "%s: signed in, but the realtime channel is down (try 'resume'): %v\n", what, err)
	default:
		fmt.Fprintf(a.out, "%s failed: %v\n", what, err)
	}
}

// displayName picks a printable name from the identity, falling back to def.
func displayName(identity session.Identity, def string) string {
	for _, key := range []string{"userName", "UserName", "name", "email"} {
		if v, ok := identity[key].(string); ok && v != "" {
			return v
		}
	}
	return def
}
