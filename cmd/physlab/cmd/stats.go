package cmd

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show calculation statistics by module",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := NewClient().GetStats()
	if err != nil {
		return err
	}
	return NewPrinter(cmd.OutOrStdout()).PrintStats(stats)
}
