package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/microscanai/microscan/internal/conversation"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	var userID, name string
	var scansRemaining int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--id required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(context.Background()) }()

			rec, err := st.Users().Create(ctx, conversation.UsageRecord{
				UserID:         userID,
				DisplayName:    name,
				ScansRemaining: scansRemaining,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			return json.NewEncoder(os.Stdout).Encode(rec)
		},
	}
	createCmd.Flags().StringVar(&userID, "id", "", "User ID (required)")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	createCmd.Flags().IntVar(&scansRemaining, "scans-remaining", 0, "Initial scans remaining")
	_ = createCmd.MarkFlagRequired("id")
	usersCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Show a user record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(context.Background()) }()

			rec, err := st.Users().Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get user: %w", err)
			}
			return json.NewEncoder(os.Stdout).Encode(rec)
		},
	}
	usersCmd.AddCommand(getCmd)

	rootCmd.AddCommand(usersCmd)
}
