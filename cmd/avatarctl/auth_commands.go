package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"avatarctl/internal/services"
	"avatarctl/internal/studio"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				secret, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = secret
			}
			client, err := ctx.studioClient()
			if err != nil {
				return err
			}
			if _, err := client.Login(commandCtx(cmd), email, password); err != nil {
				return err
			}
			user, err := client.Me(commandCtx(cmd))
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Email, humanize(string(user.Role)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", services.Wrap(services.ErrValidation, "auth", "login", "empty password on stdin", nil)
	}
	return secret, nil
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.studioClient()
			if err != nil {
				return err
			}
			if err := client.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

type whoamiView struct {
	User            studio.User `json:"user"`
	UsagePercent    float64     `json:"usage_percent"`
	AccessExpiresAt *time.Time  `json:"access_expires_at,omitempty"`
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account and its monthly quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			user, err := client.Me(commandCtx(cmd))
			if err != nil {
				return err
			}
			view := whoamiView{User: user, UsagePercent: studio.UsagePercent(user.MonthlyUsage, user.MonthlyLimit)}
			if creds, err := ctx.credentials(); err == nil {
				if access, err := creds.Access(); err == nil {
					if exp, ok := tokenExpiry(access); ok {
						view.AccessExpiresAt = &exp
					}
				}
			}

			if ctx.jsonFlag {
				return writeJSON(cmd, view)
			}
			limit := "unlimited"
			if user.MonthlyLimit != nil && *user.MonthlyLimit > 0 {
				limit = studio.FormatUsage(user.MonthlyLimit)
			}
			expires := "unknown"
			if view.AccessExpiresAt != nil {
				expires = view.AccessExpiresAt.Local().Format(time.RFC1123)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
				{"ID", user.ID},
				{"Email", user.Email},
				{"Role", humanize(string(user.Role))},
				{"Active", yesNo(user.IsActive)},
				{"Usage this month", studio.FormatUsage(user.MonthlyUsage)},
				{"Monthly limit", limit},
				{"Quota used", fmt.Sprintf("%.0f%%", view.UsagePercent)},
				{"Access token expires", expires},
			}))
			return nil
		},
	}
}

// tokenExpiry reads the exp claim without verifying the signature. The
// value is informational only.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
