package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"slackgram/internal/config"
	"slackgram/internal/domain"
	"slackgram/internal/journal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config file and print it with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			data, err := yaml.Marshal(config.Sanitize(cfg))
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			fmt.Fprintf(out, "# %s: valid\n", configPath)
			fmt.Fprint(out, string(data))

			channels := make([]string, 0, len(cfg.ChannelMappings))
			for ch := range cfg.ChannelMappings {
				channels = append(channels, ch)
			}
			sort.Strings(channels)
			fmt.Fprintf(out, "\n# %d channel(s) monitored\n", len(channels))
			for _, ch := range channels {
				fmt.Fprintf(out, "#   %s -> %s\n", ch, cfg.ChannelMappings[ch])
			}
			return nil
		},
	}
}

func journalCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent relay outcomes from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Journal.Path == "" {
				return fmt.Errorf("journal is disabled (journal.path is empty)")
			}
			store, err := journal.Open(cfg.Journal.Path, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			counts, err := store.Counts(ctx)
			if err != nil {
				return err
			}
			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "delivered=%d skipped=%d failed=%d\n\n",
				counts[domain.StatusDelivered], counts[domain.StatusSkipped], counts[domain.StatusFailed])

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSTATUS\tREASON\tCHANNEL\tCHAT\tSENDER\tERROR")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Local().Format(time.DateTime), e.Status, e.Reason, e.Channel, e.ChatID, e.Sender, e.Error)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}
