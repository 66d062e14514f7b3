package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/horas/internal/registry"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK: %d tenants, %s store.\n", len(cfg.Tenants), cfg.Database.Driver)
		return nil
	},
}

var configTenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "List configured tenants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(cfg.Tenants) == 0 {
			fmt.Fprintln(out, "No tenants configured.")
			return nil
		}
		for _, t := range cfg.Tenants {
			fmt.Fprintf(out, "%s  %s\n", headerStyle.Render(t.ID), t.Name)
			fmt.Fprintf(out, "  timezone  %s\n", t.Timezone)
			fmt.Fprintf(out, "  source    %s\n", t.TimeTracking.Kind)
			fmt.Fprintf(out, "  tracker   %s\n", registry.SynchronizerName(t))
			fmt.Fprintf(out, "  patterns  %v\n", t.TicketPatterns)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configTenantsCmd)
}
