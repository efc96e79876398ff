package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dog-catalog/internal/app"
	"dog-catalog/internal/core/database"
	"dog-catalog/internal/domain"
	"dog-catalog/internal/repo"
	"dog-catalog/pkg/utils"
)

// store 管理命令直接连库；迁移总是执行，保证新库可用
func (e *env) store(ctx context.Context) (*database.Manager, error) {
	if strings.TrimSpace(e.cfg.DB.DSN) == "" {
		return nil, errors.New("db.dsn is required (APP_DB_DSN or DATABASE_URL)")
	}
	m := database.NewManager(app.StoreOpts(e.cfg.DB, e.log), e.log)
	m.OnConnect = app.Migrate
	if _, err := m.Acquire(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

func passwordFlag(v string) (string, error) {
	if v == "" {
		v = os.Getenv("ADMIN_PASSWORD")
	}
	if len(v) < 8 {
		return "", errors.New("password must be at least 8 characters (--password or ADMIN_PASSWORD)")
	}
	if len(v) > 72 {
		return "", errors.New("password must be at most 72 bytes")
	}
	return v, nil
}

func (e *env) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := e.store(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func (e *env) createAccountCmd() *cobra.Command {
	var email, password, name string
	var admin bool
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "create an account, optionally with the admin role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordFlag(password)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			m, err := e.store(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			hash, err := utils.HashPassword(pw)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			a := &domain.Account{Email: strings.TrimSpace(email), PasswordHash: hash}
			if name != "" {
				a.FullName = &name
			}
			if err := repo.NewAccountRepo(m).Create(ctx, a); err != nil {
				return err
			}
			if admin {
				if err := repo.NewRoleRepo(m).Grant(ctx, a.ID, domain.RoleAdmin); err != nil {
					return err
				}
			}
			e.log.Info("account created", zap.String("id", a.ID), zap.Bool("admin", admin))
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", a.Email, a.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email (case-sensitive)")
	cmd.Flags().StringVar(&password, "password", "", "password (or ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (e *env) setPasswordCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "replace an account's password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordFlag(password)
			if err != nil {
				return err
			}
			hash, err := utils.HashPassword(pw)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			ctx := cmd.Context()
			m, err := e.store(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			accounts := repo.NewAccountRepo(m)
			a, err := accounts.FindByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("account %q: %w", email, err)
			}
			return accounts.SetPassword(ctx, a.ID, hash)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "new password (or ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// roleCmd 生成 grant / revoke
func (e *env) roleCmd(verb string) *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   verb,
		Short: verb + " a role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := domain.Role(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			ctx := cmd.Context()
			m, err := e.store(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			a, err := repo.NewAccountRepo(m).FindByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("account %q: %w", email, err)
			}
			roles := repo.NewRoleRepo(m)
			if verb == "grant" {
				err = roles.Grant(ctx, a.ID, r)
			} else {
				err = roles.Revoke(ctx, a.ID, r)
			}
			if err != nil {
				return err
			}
			e.log.Info("role changed", zap.String("op", verb), zap.String("account_id", a.ID), zap.String("role", role))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "admin | user")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (e *env) rolesCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "list the roles of an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			m, err := e.store(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			a, err := repo.NewAccountRepo(m).FindByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("account %q: %w", email, err)
			}
			bs, err := repo.NewRoleRepo(m).ListFor(ctx, a.ID)
			if err != nil {
				return err
			}
			for _, b := range bs {
				fmt.Fprintln(cmd.OutOrStdout(), b.Role)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
