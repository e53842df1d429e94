/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/friendsincode/mimir_calendar/internal/db"
	"github.com/friendsincode/mimir_calendar/internal/models"
)

var (
	createUserUsername string
	createUserEmail    string
	createUserPassword string
	createUserRole     string
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user account",
	Long: `Create a user account directly in the database.

Useful for bootstrapping the first admin account before the API is reachable.

Examples:
  # Create a regular member
  mimircal create-user --username alice --email alice@example.com --password s3cret-pass

  # Create an admin
  mimircal create-user --username root --email root@example.com --password s3cret-pass --role admin
`,
	RunE: runCreateUser,
}

func init() {
	createUserCmd.Flags().StringVar(&createUserUsername, "username", "", "Username (required)")
	createUserCmd.Flags().StringVar(&createUserEmail, "email", "", "Email address (required)")
	createUserCmd.Flags().StringVar(&createUserPassword, "password", "", "Password (required, min 8 chars)")
	createUserCmd.Flags().StringVar(&createUserRole, "role", "member", "Role: admin or member")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createUserCmd)
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	username := strings.TrimSpace(createUserUsername)
	email := strings.TrimSpace(createUserEmail)
	if username == "" || email == "" {
		return fmt.Errorf("username and email must not be empty")
	}
	if len(createUserPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(createUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Password: string(hash),
		Role:     models.NormalizeRole(createUserRole),
	}

	if err := database.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Msg("user created")

	fmt.Printf("Created %s user %s (%s)\n", user.Role, user.Username, user.ID)
	return nil
}
