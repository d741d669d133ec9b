package cli

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/spf13/cobra"
)

func newRateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Manage billing rates",
	}
	cmd.AddCommand(newRateAddCmd(opts), newRateListCmd(opts), newRateDefaultCmd(opts), newRateConfigCmd(opts))
	return cmd
}

func newRateAddCmd(opts *rootOptions) *cobra.Command {
	var (
		name       string
		hourly     float64
		setDefault bool
	)
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a billing rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = args[0]
			}
			rate, err := billing.NewRate(args[0], name, hourly, setDefault)
			if err != nil {
				return MapError(err)
			}

			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			if err := services.Projects.AddRate(cmd.Context(), rate); err != nil {
				return MapError(fmt.Errorf("add rate: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added rate: %s (%s) - %.2f/hr\n", rate.ID, rate.Name, rate.HourlyRate)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (default: the ID)")
	cmd.Flags().Float64Var(&hourly, "hourly", 0, "Hourly rate")
	cmd.Flags().BoolVar(&setDefault, "default", false, "Use for resources without a rate")
	return cmd
}

func newRateListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List billing rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			snap, err := services.Projects.Snapshot(cmd.Context())
			if err != nil {
				return MapError(err)
			}
			printRates(cmd.OutOrStdout(), snap.Rates)
			return nil
		},
	}
}

func printRates(w io.Writer, cfg billing.RateConfig) {
	if len(cfg.Rates) == 0 {
		fmt.Fprintln(w, "No rates configured. Use 'cadence rate add' to add a rate.")
		return
	}
	fmt.Fprintf(w, "Currency: %s\n", cfg.Currency)
	if t := cfg.Tax; t != nil && t.Name != "" {
		included := ""
		if t.Included {
			included = ", included"
		}
		fmt.Fprintf(w, "Tax: %s (%.1f%%%s)\n", t.Name, t.Percent, included)
	}
	fmt.Fprintln(w)
	heading(w, "Rates")
	for _, r := range cfg.Rates {
		line := fmt.Sprintf("  %s: %s - %.2f/hr", r.ID, r.Name, r.HourlyRate)
		if r.IsDefault {
			line += " (default)"
		}
		fmt.Fprintln(w, line)
	}
}

func newRateDefaultCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "default <id>",
		Short: "Use a rate for resources without their own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			if err := services.Projects.SetDefaultRate(cmd.Context(), args[0]); err != nil {
				return MapError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default rate: %s\n", args[0])
			return nil
		},
	}
}

func newRateConfigCmd(opts *rootOptions) *cobra.Command {
	var (
		currency string
		tax      billing.TaxConfig
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Set the currency and tax used in cost reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			var taxCfg *billing.TaxConfig
			if cmd.Flags().Changed("tax-name") || cmd.Flags().Changed("tax-percent") {
				taxCfg = &tax
			}
			if err := services.Projects.ConfigureBilling(cmd.Context(), currency, taxCfg); err != nil {
				return MapError(fmt.Errorf("configure billing: %w", err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Billing configuration updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "ISO currency code, e.g. EUR")
	cmd.Flags().StringVar(&tax.Name, "tax-name", "", "Tax name, e.g. VAT")
	cmd.Flags().Float64Var(&tax.Percent, "tax-percent", 0, "Tax percentage, e.g. 20")
	cmd.Flags().BoolVar(&tax.Included, "tax-included", false, "Rates already include the tax")
	return cmd
}
