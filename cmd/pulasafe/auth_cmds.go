package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
	"pulasafe/internal/service"
	"pulasafe/internal/session"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email, err = a.prompt("Email", email); err != nil {
				return err
			}
			if password, err = a.prompt("Password", password); err != nil {
				return err
			}
			sess, err := a.auth.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return a.emit(sess.User, func(w io.Writer) {
				fmt.Fprintf(w, "Signed in as %s\n", sess.User.Email)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newSignupCmd(a *app) *cobra.Command {
	var in service.SignUpInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.auth.SignUp(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.emit(map[string]any{
				"user":                  res.User,
				"confirmation_required": res.Session == nil,
			}, func(w io.Writer) {
				if res.Session == nil {
					fmt.Fprintf(w, "Account created. Check %s to confirm it, then run pulasafe login.\n", in.Email)
					return
				}
				fmt.Fprintf(w, "Account created. Signed in as %s\n", res.User.Email)
			})
		},
	}
	cmd.Flags().StringVar(&in.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email")
	cmd.Flags().StringVar(&in.PhoneNumber, "phone", "", "Phone number")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm-password", "", "Password again")
	return cmd
}

func newOAuthCmd(a *app) *cobra.Command {
	var callback string
	cmd := &cobra.Command{
		Use:   "oauth <provider>",
		Short: "Print the provider sign-in URL, or finish sign-in with --callback",
		Long: `Without --callback, prints the URL to open in a browser. After the
provider redirects, pass the full redirect URL back with --callback.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if callback == "" {
				u, err := a.auth.OAuthURL(args[0])
				if err != nil {
					return err
				}
				return a.emit(map[string]string{"url": u}, func(w io.Writer) {
					fmt.Fprintln(w, u)
				})
			}

			sess, err := sessionFromCallback(callback, time.Now())
			if err != nil {
				return err
			}
			ctx := backend.WithAccessToken(cmd.Context(), sess.AccessToken)
			user, err := a.client.Auth().GetUser(ctx)
			if err != nil {
				return models.NewBackendError("Could not load the signed-in user", err)
			}
			sess.User = *user
			a.client.Auth().SetSession(sess)

			return a.emit(sess.User, func(w io.Writer) {
				fmt.Fprintf(w, "Signed in as %s\n", sess.User.Email)
			})
		},
	}
	cmd.Flags().StringVar(&callback, "callback", "", "Redirect URL returned by the provider")
	return cmd
}

// sessionFromCallback reads the tokens the auth server appends to the OAuth
// redirect URL. They arrive in the fragment; the query is checked too.
func sessionFromCallback(raw string, now time.Time) (*models.Session, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, models.NewValidationError("Invalid callback URL")
	}
	values, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return nil, models.NewValidationError("Invalid callback URL")
	}
	for k, v := range u.Query() {
		if values.Get(k) == "" {
			values[k] = v
		}
	}

	if desc := values.Get("error_description"); desc != "" {
		return nil, models.NewUnauthorizedError(desc)
	}
	if e := values.Get("error"); e != "" {
		return nil, models.NewUnauthorizedError(e)
	}

	sess := &models.Session{
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
		TokenType:    values.Get("token_type"),
	}
	if sess.AccessToken == "" {
		return nil, models.NewValidationError("Callback URL carries no access token")
	}
	if at, err := strconv.ParseInt(values.Get("expires_at"), 10, 64); err == nil && at > 0 {
		sess.ExpiresAt = time.Unix(at, 0)
	} else if in, err := strconv.ParseInt(values.Get("expires_in"), 10, 64); err == nil && in > 0 {
		sess.ExpiresAt = now.Add(time.Duration(in) * time.Second)
	}
	return sess, nil
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email, err = a.prompt("Email", email); err != nil {
				return err
			}
			if err := a.auth.ResetPassword(cmd.Context(), email); err != nil {
				return err
			}
			return a.emit(map[string]string{"status": "sent"}, func(w io.Writer) {
				fmt.Fprintln(w, "Password reset instructions have been sent to your email.")
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.holder.State() != session.StateAuthenticated {
				fmt.Fprintln(a.out, "Not signed in.")
				return nil
			}
			err := a.holder.SignOut(cmd.Context())
			fmt.Fprintln(a.out, "Signed out.")
			if err != nil {
				return models.NewBackendError("Signed out locally, but the backend did not confirm", err)
			}
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			sess := a.session()
			out := map[string]any{"state": a.holder.State()}
			if sess != nil {
				out["user"] = sess.User
				out["expires_at"] = sess.ExpiresAt
			}
			return a.emit(out, func(w io.Writer) {
				if sess == nil {
					fmt.Fprintln(w, "Not signed in.")
					return
				}
				name := sess.User.Metadata.FullName
				if name == "" {
					name = sess.User.Email
				}
				fmt.Fprintf(w, "%s <%s>\nuser id: %s\nexpires: %s\n",
					name, sess.User.Email, sess.User.ID, sess.ExpiresAt.Local().Format(time.RFC1123))
			})
		},
	}
}
