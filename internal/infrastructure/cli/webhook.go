package cli

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cadence/pkg/domain/events"
	"github.com/spf13/cobra"
)

func newWebhookCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Inspect schedule alert webhooks",
		Long: `Webhooks are configured under "webhooks" in .cadence/config.yaml.
Cadence posts schedule alerts (finish slipped, critical path changed,
over-allocation) and, without event filters, every recorded event.
Deliveries that fail after all retries are kept as dead letters.`,
	}
	cmd.AddCommand(newWebhookListCmd(opts), newWebhookTestCmd(opts), newWebhookDeadLettersCmd(opts))
	return cmd
}

func newWebhookListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			w := cmd.OutOrStdout()
			endpoints := services.Workspace.Config.Webhooks
			if len(endpoints) == 0 {
				fmt.Fprintln(w, "No webhooks configured.")
				return nil
			}
			for _, ep := range endpoints {
				state := goodStyle.Render("enabled")
				if !ep.Enabled {
					state = mutedStyle.Render("disabled")
				}
				filters := "all events"
				if len(ep.EventFilters) > 0 {
					filters = strings.Join(ep.EventFilters, ", ")
				}
				signed := ""
				if ep.Secret != "" {
					signed = " (signed)"
				}
				fmt.Fprintf(w, "  %-16s %s%s  %s  [%s]\n", ep.Name, ep.URL, signed, state, filters)
			}
			return nil
		},
	}
}

func newWebhookTestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test alert to every enabled webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			notifier := services.Workspace.Notifier
			if notifier == nil {
				services.Workspace.Close()
				return NewCLIError("no webhooks configured", "Add a webhooks entry to .cadence/config.yaml", nil)
			}

			before, _ := services.Workspace.DeadLetters.ReadAll()
			if err := notifier.Notify(cmd.Context(), events.NotificationLevelInfo, "Test alert", "Webhook delivery from cadence works."); err != nil {
				services.Workspace.Close()
				return err
			}
			services.Workspace.Close()

			after, _ := services.Workspace.DeadLetters.ReadAll()
			if failed := len(after) - len(before); failed > 0 {
				return NewCLIError(fmt.Sprintf("%d delivery(ies) failed", failed), "Run 'cadence webhook dead-letters' for details", nil)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test alert delivered.")
			return nil
		},
	}
}

func newWebhookDeadLettersCmd(opts *rootOptions) *cobra.Command {
	var (
		clearAll bool
		retry    bool
		jsonFlag bool
	)
	cmd := &cobra.Command{
		Use:   "dead-letters",
		Short: "Show webhook deliveries that failed after all retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			store := services.Workspace.DeadLetters
			w := cmd.OutOrStdout()
			if clearAll {
				if err := store.Clear(); err != nil {
					return fmt.Errorf("failed to clear dead letters: %w", err)
				}
				fmt.Fprintln(w, "Dead letters cleared.")
				return nil
			}
			if retry {
				notifier := services.Workspace.Notifier
				if notifier == nil {
					return NewCLIError("no webhooks configured", "Add a webhooks entry to .cadence/config.yaml", nil)
				}
				sent, err := store.Drain(func(dl events.DeadLetter) error {
					return notifier.Redeliver(cmd.Context(), dl)
				})
				if err != nil {
					return fmt.Errorf("failed to retry dead letters: %w", err)
				}
				left, _ := store.ReadAll()
				fmt.Fprintf(w, "Redelivered %d, %d still failing.\n", sent, len(left))
				return nil
			}

			letters, err := store.ReadAll()
			if err != nil {
				return fmt.Errorf("failed to read dead letters: %w", err)
			}
			if jsonOutput(cmd, jsonFlag, services) {
				return writeJSON(w, letters)
			}
			if len(letters) == 0 {
				fmt.Fprintln(w, "No dead letters.")
				return nil
			}
			heading(w, fmt.Sprintf("Dead letters (%d)", len(letters)))
			for _, dl := range letters {
				fmt.Fprintf(w, "  %s  %-16s %-20s %d attempt(s): %s\n",
					fmtTime(dl.Timestamp), dl.WebhookName, dl.EventType, dl.Attempts, dl.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all dead letters")
	cmd.Flags().BoolVar(&retry, "retry", false, "Resend dead letters and keep the ones that still fail")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	return cmd
}
