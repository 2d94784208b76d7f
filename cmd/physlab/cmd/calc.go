package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var calcCmd = &cobra.Command{
	Use:   "calc <expression>",
	Short: "Evaluate a scientific calculator expression",
	Long: `Evaluate an expression on the server's scientific calculator.

Trigonometric functions take degrees. Supported: + - * / ^ %, parentheses,
sin cos tan asin acos atan sqrt log ln abs exp factorial reciprocal,
and the constants pi and e.

Examples:
  physlab calc "sin(30) + 2^3"
  physlab calc 'sqrt(2) * pi'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := NewClient().Calculate(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return NewPrinter(cmd.OutOrStdout()).PrintResult(res)
	},
}

func init() {
	rootCmd.AddCommand(calcCmd)
}
