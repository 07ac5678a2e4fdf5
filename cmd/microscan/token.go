package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/microscanai/microscan/internal/auth"
)

func init() {
	var userID, expiresIn string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ttl := auth.ParseExpiresIn(expiresIn, auth.ParseExpiresIn(cfg.Auth.JWTExpiresIn, 24*time.Hour))
			token, expiresAt, err := auth.GenerateToken(userID, cfg.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, token)
			_, _ = fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	tokenCmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	tokenCmd.Flags().StringVar(&expiresIn, "expires-in", "", "Token lifetime, e.g. 1h (defaults to auth.jwt_expires_in)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
