package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xrpl-buy-bot/internal/config"
	"xrpl-buy-bot/internal/price"
)

func newPriceCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "price",
		Short: "Look up the tracked token price once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}

			client := price.NewClient(cfg.Asset,
				price.WithBaseURL(cfg.PriceAPIURL),
				price.WithTimeout(cfg.PriceTimeout),
			)
			p, err := client.Price(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s: %w", client.URL(), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s/XRP %s\n", cfg.Asset.Currency, p.StringFixed(8))
			return nil
		},
	}
}
