package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasvrm/previso/internal/infra/session"
)

var (
	loginToken     string
	loginExpiresIn time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an access token for the current profile",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored access token for the current profile",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "access token issued by the auth provider")
	loginCmd.Flags().DurationVar(&loginExpiresIn, "expires-in", 0, "token lifetime (0 = unknown)")
	_ = loginCmd.MarkFlagRequired("token")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

var errNoSessionStore = errors.New("no session store configured: set database.url")

func runLogin(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.SessionRepo == nil {
		return errNoSessionStore
	}

	cred := &session.Credential{Token: loginToken}
	if loginExpiresIn > 0 {
		cred.ExpiresAt = time.Now().Add(loginExpiresIn)
	}
	if err := app.SessionRepo.Save(commandContext(cmd), cred); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as profile %q (token %s)\n", appCfg.Session.Profile, cred.Prefix())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.SessionRepo == nil {
		return errNoSessionStore
	}
	if err := app.SessionRepo.Clear(commandContext(cmd)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged out of profile %q\n", appCfg.Session.Profile)
	return nil
}
