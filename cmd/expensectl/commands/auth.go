package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/benvon/expense-console/internal/session"
	"github.com/benvon/expense-console/internal/views"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts *Options) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the expense API",
		Long:  "Exchange a username and password for a session token. The password is prompted for when --password is not given.",
		RunE: withApp(opts, views.RouteLogin, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			if password == "" {
				var err error
				if password, err = promptPassword(cmd); err != nil {
					return err
				}
			}

			page := views.NewLoginPage(app.session)
			if err := page.Submit(ctx, username, password); err != nil {
				return app.viewError(page.Alert(), err)
			}
			app.printf("Logged in as %s\n", app.session.Identity().Username)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

// promptPassword reads a password without echo from a terminal, or one line
// from piped stdin
func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: withApp(opts, "", func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			if err := app.session.Logout(ctx); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			app.printf("Logged out\n")
			return nil
		}),
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity in the stored session token",
		RunE: withApp(opts, views.RouteDashboard, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			identity := app.session.Identity()
			view := whoamiView(identity)
			roles := view["roles"].([]string)
			id := "-"
			if identity.HasID {
				id = fmt.Sprint(identity.ID)
			}
			expires := "-"
			if !identity.ExpiresAt.IsZero() {
				expires = identity.ExpiresAt.Local().Format("2006-01-02 15:04")
			}
			return app.printTable(view,
				[]string{"USERNAME", "ID", "ROLES", "APPROVER", "ADMIN", "EXPIRES"},
				[][]string{{
					identity.Username, id, strings.Join(roles, ","),
					fmt.Sprint(identity.CanApprove()), fmt.Sprint(identity.IsAdmin()), expires,
				}},
			)
		}),
	}
}

// whoamiView is the --json shape of whoami. id is null when the token
// carries none.
func whoamiView(identity *session.Identity) map[string]any {
	roles := make([]string, 0, len(identity.Roles))
	for _, r := range identity.Roles.Sorted() {
		roles = append(roles, string(r))
	}
	var id any
	if identity.HasID {
		id = identity.ID
	}
	return map[string]any{
		"username":   identity.Username,
		"id":         id,
		"roles":      roles,
		"canApprove": identity.CanApprove(),
		"isAdmin":    identity.IsAdmin(),
		"expiresAt":  identity.ExpiresAt,
	}
}

// NewSignupCmd creates the signup command
func NewSignupCmd(opts *Options) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new employee account",
		RunE: withApp(opts, views.RouteSignup, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = promptPassword(cmd); err != nil {
					return err
				}
			}
			page := views.NewSignupPage(app.services.Auth, session.NavigatorFunc(app.navigate))
			user, err := page.Submit(ctx, username, email, password)
			if err != nil {
				return app.viewError(page.Alert(), err)
			}
			app.printf("%s\nAccount %s created (employee id %s)\n", page.Alert(), user.Username, user.EmployeeID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}
