package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/qcom/intake/internal/bootstrap"
	"github.com/qcom/intake/internal/config"
	"github.com/qcom/intake/internal/kv"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/repository"
	"github.com/qcom/intake/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long: `Create an admin account in the configured store.

The password is read from --password or, when omitted, from the
INTAKE_ADMIN_PASSWORD environment variable.`,
	RunE: runAdminCreate,
}

var adminSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admins listed in a YAML seed file",
	Long: `Create every admin listed in a YAML seed file. Admins that already
exist are left untouched.

Example:
  intakectl admin seed --file admins.yaml`,
	RunE: runAdminSeed,
}

var (
	adminEmail    string
	adminName     string
	adminRole     string
	adminPassword string
	seedPath      string
)

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "admin email (required)")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "display name")
	adminCreateCmd.Flags().StringVar(&adminRole, "role", string(models.RoleAdmin), "admin or super_admin")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "password, at least 8 characters")
	_ = adminCreateCmd.MarkFlagRequired("email")

	adminSeedCmd.Flags().StringVarP(&seedPath, "file", "f", "", "path to the YAML seed file (required)")
	_ = adminSeedCmd.MarkFlagRequired("file")

	adminCmd.AddCommand(adminCreateCmd, adminSeedCmd)
}

// openAdmins connects to the configured store and returns an admin service
// on top of it. The caller closes the store.
func openAdmins(ctx context.Context, logger *logrus.Logger) (*service.AdminService, *repository.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if store.Driver == config.StoreMemory {
		logger.Warn("STORE_DRIVER is memory; admins created here are discarded on exit")
	}

	jwtService, err := service.NewJWTService(&cfg.JWT, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, nil, err
	}
	sessions := service.NewSessionService(kv.NewMemoryStore(), logger)
	return service.NewAdminService(store.Admins, jwtService, sessions, cfg.Admin.BcryptCost, logger), store, nil
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	password := adminPassword
	if password == "" {
		password = os.Getenv("INTAKE_ADMIN_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required: pass --password or set INTAKE_ADMIN_PASSWORD")
	}

	admins, store, err := openAdmins(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	admin, err := admins.CreateAdmin(ctx, service.CreateAdminInput{
		Email:    adminEmail,
		Password: password,
		Name:     adminName,
		Role:     models.AdminRole(adminRole),
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		return fmt.Errorf("admin %s already exists", models.NormalizeEmail(adminEmail))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s admin %s (id %s)\n", admin.Role, admin.Email, admin.ID)
	return nil
}

func runAdminSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	admins, store, err := openAdmins(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	created, err := bootstrap.SeedAdmins(ctx, admins, seedPath, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %d admin(s) from %s\n", created, seedPath)
	return nil
}
