package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakwood-commons/crmx/internal/auth"
)

var (
	loginEmail         string
	loginPasswordStdin bool
)

// readPassword reads without echo from the terminal. Tests replace it.
var readPassword = func() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	return string(b), err
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your CRM email and password",
	Long: `Sign in with your CRM email and password.

The password is exchanged for a token with the identity provider
(identity.url, or the backend URL when unset); the token is verified with
the backend once and stored in the session file.`,
	Example: `  crmx login --email ana@example.mx
  echo "$CRM_PASSWORD" | crmx login --email ana@example.mx --password-stdin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()

		in := cmd.InOrStdin()
		errOut := cmd.ErrOrStderr()
		email := strings.TrimSpace(loginEmail)
		if email == "" {
			if stdinIsPiped() {
				return errors.New("--email is required when stdin is not a terminal")
			}
			fmt.Fprint(errOut, "Email: ")
			if email, err = readLine(in); err != nil {
				return err
			}
		}

		var password string
		switch {
		case loginPasswordStdin:
			password, err = readLine(in)
		case stdinIsPiped():
			return errors.New("pass --password-stdin to read the password from a pipe")
		default:
			fmt.Fprint(errOut, "Password: ")
			password, err = readPassword()
			fmt.Fprintln(errOut)
		}
		if err != nil {
			return err
		}

		idp := a.cfg.Identity.URL
		if idp == "" {
			idp = a.cfg.Backend.URL
		}
		client := auth.New(auth.Options{
			IDPURL:   idp,
			APIKey:   a.cfg.Identity.APIKey,
			Timeout:  a.cfg.Backend.Timeout.Std(),
			Verifier: a.backend,
			Store:    a.store,
		})
		sess, err := client.SignIn(ctx, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.Email)
		if sess.Office.IsZero() {
			fmt.Fprintln(errOut, "No office selected yet: run `crmx office list` and `crmx office select <id>`.")
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()
		if err := auth.New(auth.Options{Store: a.store}).SignOut(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and office",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()
		office := a.offices.Current()
		run := runSettings(cmd.Context())
		if run.Output != "table" {
			return printValue(cmd.OutOrStdout(), run.Output, map[string]any{
				"email":        a.sess.Email,
				"userId":       a.sess.UserID,
				"office":       office,
				"clientNumber": a.sess.ClientNumber,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.status())
		return nil
	},
}

func init() { //nolint:gochecknoinits
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "read the password from stdin")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
