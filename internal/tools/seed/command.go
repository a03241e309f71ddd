package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/config"
	"github.com/orgstack/identity-admin/internal/database"
	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/tools/common"
	"github.com/orgstack/identity-admin/internal/tools/ui"
)

type options struct {
	envFile       string
	adminUsername string
	adminPassword string
	ci            bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Database seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.adminUsername, "bootstrap-admin-username", "", "override bootstrap admin username")
	cmd.PersistentFlags().StringVar(&opts.adminPassword, "bootstrap-admin-password", "", "override bootstrap admin password")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newPromoteCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply default seed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "seed apply", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				username := cfg.BootstrapAdminUsername
				password := cfg.BootstrapAdminPassword
				if opts.adminUsername != "" {
					username = opts.adminUsername
				}
				if opts.adminPassword != "" {
					password = opts.adminPassword
				}
				report, err := database.Seed(db, cfg.RBACSuperRole, username, password)
				if err != nil {
					return nil, err
				}
				details := []string{
					fmt.Sprintf("permissions created: %d", report.CreatedPermissions),
					fmt.Sprintf("roles created: %d", report.CreatedRoles),
					fmt.Sprintf("groups created: %d", report.CreatedGroups),
					fmt.Sprintf("themes created: %d", report.CreatedThemes),
				}
				if report.BootstrapAdmin {
					details = append(details, "bootstrap admin created: "+username)
				}
				return details, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "seed apply", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "seed dry-run", func(ctx context.Context) ([]string, error) {
				cfg, _, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				username := cfg.BootstrapAdminUsername
				if opts.adminUsername != "" {
					username = opts.adminUsername
				}
				details := []string{
					"would ensure the capability catalog for users, roles, permissions, groups, categories and themes",
					"would ensure the super role: " + cfg.RBACSuperRole,
					"would ensure groups: Administrators, Webmaster",
					"would ensure the default theme",
				}
				if username != "" {
					details = append(details, "would create bootstrap admin if missing: "+username)
				}
				return details, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "seed dry-run", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func newPromoteCommand(opts *options) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Assign the super role to an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "seed promote", func(ctx context.Context) ([]string, error) {
				if strings.TrimSpace(username) == "" {
					return nil, fmt.Errorf("username is required")
				}
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				if err := promote(db, cfg.RBACSuperRole, username); err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("assigned role %q to %s", cfg.RBACSuperRole, strings.TrimSpace(username))}, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "seed promote", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account to promote")
	return cmd
}

func promote(db *gorm.DB, superRole, username string) error {
	var user domain.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	var role domain.Role
	if err := db.Where("name = ?", superRole).First(&role).Error; err != nil {
		return fmt.Errorf("find super role: %w", err)
	}
	pivot := domain.UserRole{UserID: user.ID, RoleID: role.ID}
	if err := db.Where(&pivot).FirstOrCreate(&pivot).Error; err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		return fn(context.Background())
	}
	return ui.Run(title, fn)
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
