package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/autogmail/internal/authflow"
	"github.com/teemow/autogmail/internal/tokenstore"
)

func newLoginCmd() *cobra.Command {
	var (
		token       string
		callbackURL string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google through the backend",
		Long: `Sign in with Google through the AutoGmail backend and save the issued token.

Without flags the command prints the Google sign-in URL. After signing in, the
browser is redirected to the dashboard's /auth/callback page. Paste that full
URL when prompted.

  --token         save a token you already have
  --callback-url  use a callback URL without prompting`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, cmd, storePersistent)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var cb authflow.Callback
			switch {
			case token != "":
				cb, err = authflow.HandleCallback(ctx, a.store, url.Values{authflow.ParamToken: {token}})
			case callbackURL != "":
				cb, err = authflow.HandleCallbackURL(ctx, a.store, callbackURL)
			default:
				loginURL, lerr := a.backend.LoginURL(ctx)
				if lerr != nil {
					return fmt.Errorf("could not reach the sign-in service: %w", lerr)
				}
				fmt.Fprintf(out, "Open this URL in your browser and sign in with Google:\n\n  %s\n\n", loginURL)
				fmt.Fprint(out, "Paste the URL you were redirected to: ")

				line, rerr := readLine(cmd.InOrStdin())
				if rerr != nil {
					return fmt.Errorf("failed to read callback URL: %w", rerr)
				}
				cb, err = authflow.HandleCallbackURL(ctx, a.store, line)
			}
			if err != nil {
				return err
			}
			if !cb.SignedIn() {
				return errors.New("sign-in failed: no token received")
			}

			who := cb.Email
			if who == "" {
				who = subjectOf(cb.Token)
			}
			if who != "" {
				fmt.Fprintf(out, "Signed in as %s\n", who)
			} else {
				fmt.Fprintln(out, "Signed in")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token to save instead of running the browser flow")
	cmd.Flags().StringVar(&callbackURL, "callback-url", "", "Callback URL received after signing in")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), cmd, storePersistent)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := authflow.Logout(cmd.Context(), a.store); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the backend and sign-in status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, cmd, storePersistent)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:     %s (%s)\n", a.resolver.BaseURL(), a.resolver.Source())
			fmt.Fprintf(out, "Token store: %s\n", a.cfg.TokenStore.Type)

			token, err := a.store.Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			if token == "" {
				fmt.Fprintln(out, "Signed in:   no (run 'autogmail login')")
				return nil
			}

			fmt.Fprintln(out, "Signed in:   yes")
			if claims, err := tokenstore.Inspect(token); err == nil {
				if claims.Subject != "" {
					fmt.Fprintf(out, "User:        %s\n", claims.Subject)
				}
				if !claims.ExpiresAt.IsZero() {
					state := "valid"
					if claims.Expired(time.Now()) {
						state = "expired"
					}
					fmt.Fprintf(out, "Expires:     %s (%s)\n", claims.ExpiresAt.Format(time.RFC3339), state)
				}
			}

			if check {
				if _, err := a.backend.ListInbox(ctx, 1); err != nil {
					fmt.Fprintf(out, "Backend:     unreachable or token rejected: %v\n", err)
					return err
				}
				fmt.Fprintln(out, "Backend:     token accepted")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Verify the token against the backend")

	return cmd
}

func subjectOf(token string) string {
	claims, err := tokenstore.Inspect(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
