package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the operator entry point for one-off maintenance tasks.
var rootCmd = &cobra.Command{
	Use:   "restaurantctl",
	Short: "Operate the restaurant ordering service",
	Long: `Maintenance commands for the restaurant ordering service.

Available subcommands:
  migrate            - Apply embedded database migrations
  bootstrap-admin    - Create the first super admin account
  rotate-table-codes - Issue fresh codes for every table of a restaurant
  housekeeping       - Run archive and purge jobs`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/default.yaml", "Path to the service config file")

	migrateCmd.Flags().Bool("list", false, "List embedded migrations without applying them")

	bootstrapAdminCmd.Flags().String("email", "", "Super admin email")
	bootstrapAdminCmd.Flags().String("name", "Super Admin", "Display name")
	bootstrapAdminCmd.Flags().String("password", "", "Initial password (or set BOOTSTRAP_ADMIN_PASSWORD)")
	_ = bootstrapAdminCmd.MarkFlagRequired("email")

	rotateTableCodesCmd.Flags().String("restaurant", "", "Restaurant ID")
	_ = rotateTableCodesCmd.MarkFlagRequired("restaurant")

	housekeepingCmd.AddCommand(housekeepingRunOnceCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(bootstrapAdminCmd)
	rootCmd.AddCommand(rotateTableCodesCmd)
	rootCmd.AddCommand(housekeepingCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
