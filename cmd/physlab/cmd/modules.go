package cmd

import (
	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:     "modules [module]",
	Aliases: []string{"ls"},
	Short:   "List calculation modules or show a module's inputs",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runModules,
}

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List unit conversion types and units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := NewClient().ListUnits()
		if err != nil {
			return err
		}
		return NewPrinter(cmd.OutOrStdout()).PrintUnits(categories)
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(unitsCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	client := NewClient()
	printer := NewPrinter(cmd.OutOrStdout())

	if len(args) == 1 {
		info, err := client.GetModule(args[0])
		if err != nil {
			return err
		}
		return printer.PrintModule(info)
	}

	modules, err := client.ListModules()
	if err != nil {
		return err
	}
	return printer.PrintModules(modules)
}
