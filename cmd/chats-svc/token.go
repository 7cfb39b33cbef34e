package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gochats/internal/common"
	"gochats/internal/config"
)

func tokenCmd() *cobra.Command {
	var (
		principal common.Principal
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if principal.UserID == "" {
				return fmt.Errorf("--user is required")
			}
			cfg := config.LoadConfig()
			token, err := common.GenerateToken([]byte(cfg.JWT.Secret), principal, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&principal.UserID, "user", "u", "", "User id")
	cmd.Flags().StringVarP(&principal.Plan, "plan", "p", "pro", "Plan tier")
	cmd.Flags().StringSliceVarP(&principal.Roles, "roles", "r", []string{"USER"}, "Roles")
	cmd.Flags().StringSliceVarP(&principal.Addons, "addons", "a", nil, "Addons")
	cmd.Flags().StringVar(&principal.Name, "name", "", "Display name")
	cmd.Flags().BoolVar(&principal.VerifiedEmail, "verified-email", true, "Email verified flag")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime, 0 for no expiry")

	return cmd
}
