package main

import (
	"fmt"

	"github.com/Veraticus/musiqhub/internal/cli"
	"github.com/Veraticus/musiqhub/internal/finance"
	"github.com/spf13/cobra"
)

func tierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tier <net fee>",
		Short: "Show the support-fee tier for a net lesson fee",
		Example: `  musiqhub tier 16.09
  musiqhub tier '$18.40'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, fee, err := finance.ClassifyFee(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s tier %d, support fee $%s\n",
				cli.ChartIcon, tier, fee.StringFixed(2))
			return nil
		},
	}
}
