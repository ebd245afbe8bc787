package cli

import (
	"errors"
	"fmt"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories/postgres"
	"messaging-service/internal/services"

	"github.com/spf13/cobra"
)

type createAdminOptions struct {
	Username string
	Email    string
	Password string
}

func newCreateAdminCommand() *cobra.Command {
	opts := &createAdminOptions{}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an account with the admin role. Admins manage groups and
user activation; the HTTP API never grants this role.

Example:
  messaging-service create-admin --username root --email root@example.com --password s3cret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Password == "" {
				return errors.New("--password is required")
			}
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			users := services.NewUserService(postgres.NewUserRepository(db), cfg.JWT.Secret, cfg.JWT.ExpirationTime)
			admin, err := users.CreateAdmin(cmd.Context(), &models.RegisterRequest{
				Username: opts.Username,
				Email:    opts.Email,
				Password: opts.Password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Username, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&opts.Email, "email", "", "admin email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "admin password (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
