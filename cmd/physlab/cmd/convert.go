package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var convertType string

var convertCmd = &cobra.Command{
	Use:   "convert <value> <from> <to>",
	Short: "Convert a value between units",
	Long: `Convert a value between two units of the same type.

Examples:
  physlab convert 10 m/s km/h
  physlab convert 5 km mile --type distance
  physlab convert 100 C F --type temperature`,
	Args: cobra.ExactArgs(3),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&convertType, "type", "t", "speed", "Conversion type (see 'physlab units')")
}

func runConvert(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: must be a number", args[0])
	}
	res, err := NewClient().Convert(&ConvertRequest{
		Type:     convertType,
		Value:    value,
		FromUnit: args[1],
		ToUnit:   args[2],
	})
	if err != nil {
		return err
	}
	return NewPrinter(cmd.OutOrStdout()).PrintResult(res)
}
