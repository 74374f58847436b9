package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/app/bootstrap"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply embedded database migrations",
	RunE:  runMigrate,
}

var bootstrapAdminCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Create the first super admin account",
	Long: `Create a super admin staff account with no restaurant binding.

Fails with a conflict when the email is already registered.`,
	RunE: runBootstrapAdmin,
}

var rotateTableCodesCmd = &cobra.Command{
	Use:   "rotate-table-codes",
	Short: "Issue fresh codes for every active table of a restaurant",
	RunE:  runRotateTableCodes,
}

var housekeepingCmd = &cobra.Command{
	Use:   "housekeeping",
	Short: "Order archival and idempotency purge jobs",
}

var housekeepingRunOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Run archive and purge jobs immediately",
	RunE:  runHousekeepingOnce,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if list, _ := cmd.Flags().GetBool("list"); list {
		names, err := postgres.MigrationNames()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := bootstrap.NewLogger(cfg)
	db, err := bootstrap.ConnectDatabase(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	logger.Info("migrations applied")
	return nil
}

func runBootstrapAdmin(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	}
	if password == "" {
		return errors.New("password is required: pass --password or set BOOTSTRAP_ADMIN_PASSWORD")
	}

	return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
		staff, err := rt.Service().BootstrapSuperAdmin(cmd.Context(), email, name, password)
		if err != nil {
			return err
		}
		return printJSON(cmd, staff)
	})
}

func runRotateTableCodes(cmd *cobra.Command, _ []string) error {
	raw, _ := cmd.Flags().GetString("restaurant")
	restaurantID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid restaurant id %q: %w", raw, err)
	}

	return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
		tables, err := rt.Service().RotateTableCodes(cmd.Context(), application.SystemPrincipal(), restaurantID)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"tables": tables})
	})
}

func runHousekeepingOnce(cmd *cobra.Command, _ []string) error {
	return withRuntime(cmd.Context(), func(rt *bootstrap.Runtime) error {
		housekeeper, err := rt.Housekeeper()
		if err != nil {
			return err
		}
		archived, purged := housekeeper.RunOnce(cmd.Context())
		return printJSON(cmd, map[string]int64{
			"archived_orders":         archived,
			"purged_idempotency_keys": purged,
		})
	})
}

func withRuntime(ctx context.Context, fn func(*bootstrap.Runtime) error) error {
	rt, err := bootstrap.NewRuntime(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
