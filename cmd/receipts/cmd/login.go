package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run the OAuth2 flow and check the token",
	Long: `Run the OAuth2 authorization code flow and verify the token with a test
API call. Tokens live only for the duration of the process.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	tok, err := s.auth.Token()
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\n  User:      %s\n", s.auth.UserID())
	fmt.Fprintf(s.out, "  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
	if !tok.Expiry.IsZero() {
		fmt.Fprintf(s.out, "  Expires:   %s\n", tok.Expiry.Format("2006-01-02 15:04:05"))
	}
	if s.auth.Confidential() {
		fmt.Fprintf(s.out, "  Refresh:   %s\n", text.FgGreen.Sprint("Available"))
	} else {
		fmt.Fprintf(s.out, "  Refresh:   %s\n", text.FgYellow.Sprint("Not available (re-auth required on expiry)"))
	}
	return nil
}
