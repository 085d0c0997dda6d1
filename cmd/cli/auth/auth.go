package auth

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/crucial707/detector/cmd/cli/client"
	"github.com/crucial707/detector/cmd/cli/config"
	"github.com/crucial707/detector/cmd/cli/output"
)

// InitAuth registers auth-related CLI commands (login, logout, whoami) on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(loginCmd(), logoutCmd(), whoamiCmd())
}

type user struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"pictureUrl"`
}

// loginCmd exchanges a Google ID token for an access token, or stores an existing access token.
func loginCmd() *cobra.Command {
	var credential, token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the detector API",
		Long: `Authenticate with the detector API and store the access token for subsequent CLI commands.
Pass a Google ID token with --credential, or an AccessToken cookie value copied from a browser with --token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case token != "":
				c := client.New()
				c.Token = token
				var me user
				if _, err := c.Do(cmd.Context(), http.MethodGet, "/api/auth", nil, &me); err != nil {
					return fmt.Errorf("token rejected: %w", err)
				}
				if err := config.SaveToken(token); err != nil {
					return fmt.Errorf("failed to save token: %w", err)
				}
				fmt.Printf("Logged in as %s. Token stored locally.\n", me.Email)
				return nil

			case credential != "":
				var me user
				resp, err := client.New().Do(cmd.Context(), http.MethodPost, "/api/auth", map[string]string{"credentials": credential}, &me)
				if err != nil {
					return fmt.Errorf("failed to login: %w", err)
				}
				var issued string
				for _, c := range resp.Cookies() {
					if c.Name == client.AccessTokenCookie {
						issued = c.Value
					}
				}
				if issued == "" {
					return fmt.Errorf("login succeeded but no token returned")
				}
				if err := config.SaveToken(issued); err != nil {
					return fmt.Errorf("failed to save token: %w", err)
				}
				fmt.Printf("Logged in as %s. Token stored locally.\n", me.Email)
				return nil

			default:
				return fmt.Errorf("one of --credential or --token is required")
			}
		},
	}

	cmd.Flags().StringVar(&credential, "credential", "", "Google ID token to authenticate with")
	cmd.Flags().StringVar(&token, "token", "", "existing AccessToken cookie value")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and remove the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c, err := client.Authenticated(); err == nil {
				// The server only clears its cookie; local removal is what matters.
				_, _ = c.Do(cmd.Context(), http.MethodDelete, "/api/auth", nil, nil)
			}
			if err := config.ClearToken(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var me user
			if _, err := c.Do(cmd.Context(), http.MethodGet, "/api/auth", nil, &me); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(me)
			}
			output.RenderTable([]string{"Email", "Name"}, [][]interface{}{{me.Email, me.Name}})
			return nil
		},
	}
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}
