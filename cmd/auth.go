// ABOUTME: Account commands: register, login, logout, status and whoami
// ABOUTME: Drive the session store; the token survives between runs in the credential store

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/session"
	"github.com/shelfhq/shelf/internal/tui/prompt"
)

var (
	authUsername string
	authEmail    string
	authPassword string
)

// interactive reports whether prompts may be shown. Tests replace it.
var interactive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Long: `Create a new account. Missing fields are prompted for when running in a terminal.

The returned token is stored so later commands are authenticated.`,
	Args: cobra.NoArgs,
	Run:  run(func(ctx context.Context, w io.Writer, _ []string) int { return runRegister(ctx, w) }),
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session",
	Long: `Log in with username and password. Missing fields are prompted for when running in a terminal.

Exit codes:
  0 - Logged in
  2 - Error (bad credentials, connectivity)`,
	Args: cobra.NoArgs,
	Run:  run(func(ctx context.Context, w io.Writer, _ []string) int { return runLogin(ctx, w) }),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runLogout(ctx, w) }),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session is stored",
	Long: `Report the stored session without contacting the backend.

Exit codes:
  0 - Logged in
  1 - Not logged in
  2 - Error`,
	Args: cobra.NoArgs,
	Run:  run(func(ctx context.Context, w io.Writer, _ []string) int { return runStatus(ctx, w, time.Now()) }),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Refresh and show the current user's profile",
	Long: `Fetch the current user from the backend.

Exit codes:
  0 - Profile refreshed
  1 - Not logged in
  2 - Profile could not be refreshed`,
	Args: cobra.NoArgs,
	Run:  run(func(ctx context.Context, w io.Writer, _ []string) int { return runWhoami(ctx, w) }),
}

func init() {
	registerCmd.Flags().StringVar(&authUsername, "username", "", "Username (3-30 letters, digits or _)")
	registerCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	registerCmd.Flags().StringVar(&authPassword, "password", "", "Password")
	loginCmd.Flags().StringVar(&authUsername, "username", "", "Username")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "Password")

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, statusCmd, whoamiCmd)
}

// loginCredentials returns flag values, prompting for anything missing
func loginCredentials() (*client.Credentials, error) {
	if authUsername != "" && authPassword != "" {
		return &client.Credentials{Username: authUsername, Password: authPassword}, nil
	}
	if !interactive() {
		return nil, errors.New("--username and --password are required when not running in a terminal")
	}
	return prompt.AskLogin(authUsername)
}

func registerRequest() (*client.RegisterRequest, error) {
	if authUsername != "" && authEmail != "" && authPassword != "" {
		return &client.RegisterRequest{Username: authUsername, Email: authEmail, Password: authPassword}, nil
	}
	if !interactive() {
		return nil, errors.New("--username, --email and --password are required when not running in a terminal")
	}
	return prompt.AskRegister(authUsername, authEmail)
}

// runRegister creates the account and starts a session with the new token
func runRegister(ctx context.Context, w io.Writer) int {
	req, err := registerRequest()
	if err != nil {
		return fail(w, err)
	}
	return withRuntime(ctx, w, func(rt *runtime) int {
		tok, err := rt.client.Register(ctx, req)
		if err != nil {
			return fail(w, err)
		}
		return startSession(ctx, w, rt, tok.AccessToken, "Registered")
	})
}

// runLogin exchanges credentials for a token and starts a session
func runLogin(ctx context.Context, w io.Writer) int {
	creds, err := loginCredentials()
	if err != nil {
		return fail(w, err)
	}
	return withRuntime(ctx, w, func(rt *runtime) int {
		tok, err := rt.client.Login(ctx, creds)
		if err != nil {
			return fail(w, err)
		}
		return startSession(ctx, w, rt, tok.AccessToken, "Logged in")
	})
}

// startSession stores the token, then loads the profile. A failed profile
// load leaves the user logged in.
func startSession(ctx context.Context, w io.Writer, rt *runtime, token, verb string) int {
	if err := rt.session.SetToken(ctx, token); err != nil {
		return fail(w, err)
	}
	user, synced := rt.session.SyncUserData(ctx)
	points, hasPoints := user.Points()

	out := map[string]interface{}{
		"authenticated": true,
		"username":      user.Username(),
		"profile_ready": synced,
	}
	if hasPoints {
		out["points"] = points
	}
	return emit(w, out, func() string {
		if !synced {
			return verb + " (profile could not be loaded yet; try `shelf whoami`)"
		}
		line := fmt.Sprintf("%s as %s", verb, user.Username())
		if hasPoints {
			line += "\nPoints: " + formatPoints(points)
		}
		return line
	})
}

// runLogout clears the stored session
func runLogout(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		was := rt.session.IsAuthenticated(ctx)
		if err := rt.session.Clear(ctx); err != nil {
			return fail(w, err)
		}
		return emit(w, map[string]bool{"logged_out": was}, func() string {
			if !was {
				return "Not logged in"
			}
			return "Logged out"
		})
	})
}

// runStatus reports the stored session using only local state
func runStatus(ctx context.Context, w io.Writer, now time.Time) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		if !rt.session.IsAuthenticated(ctx) {
			emit(w, map[string]interface{}{
				"authenticated":    false,
				"credential_store": rt.cfg.CredentialStore,
			}, func() string { return "Not logged in" })
			return exitNo
		}

		info, err := session.InspectToken(rt.session.Token(ctx))
		out := map[string]interface{}{
			"authenticated":    true,
			"credential_store": rt.cfg.CredentialStore,
			"api_url":          rt.cfg.APIURL,
		}
		if err == nil {
			out["subject"] = info.Subject
			if info.HasExpiry() {
				out["expires_at"] = info.ExpiresAt.UTC().Format(time.RFC3339)
				out["expired"] = info.Expired(now)
			}
		}
		return emit(w, out, func() string { return formatStatusHuman(rt, info, err, now) })
	})
}

func formatStatusHuman(rt *runtime, info session.TokenInfo, inspectErr error, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("Logged in\n")
	fmt.Fprintf(&sb, "Backend:     %s\n", rt.cfg.APIURL)
	fmt.Fprintf(&sb, "Stored in:   %s", rt.cfg.CredentialStore)
	if inspectErr != nil {
		sb.WriteString("\nToken:       opaque")
		return sb.String()
	}
	if info.Subject != "" {
		fmt.Fprintf(&sb, "\nUser:        %s", info.Subject)
	}
	if info.HasExpiry() {
		state := "expires in " + info.ExpiresAt.Sub(now).Round(time.Minute).String()
		if info.Expired(now) {
			state = "expired, run `shelf login`"
		}
		fmt.Fprintf(&sb, "\nToken:       %s", state)
	}
	return sb.String()
}

// runWhoami refreshes the cached profile from the backend
func runWhoami(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		if !rt.session.IsAuthenticated(ctx) {
			fmt.Fprintln(w, "Not logged in")
			return exitNo
		}
		user, ok := rt.session.SyncUserData(ctx)
		if !ok {
			if !rt.session.IsAuthenticated(ctx) {
				return fail(w, errors.New("session expired, run `shelf login`"))
			}
			return fail(w, errors.New("could not refresh profile"))
		}
		return emit(w, user, func() string { return formatProfileHuman(user) })
	})
}

func formatProfileHuman(user client.UserProfile) string {
	var sb strings.Builder
	sb.WriteString(user.Username())
	if points, ok := user.Points(); ok {
		sb.WriteString("  " + formatPoints(points))
	}
	rest := make(map[string]interface{}, len(user))
	for k, v := range user {
		if k == "username" || k == "points" {
			continue
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(formatDocument(rest))
	}
	return sb.String()
}
