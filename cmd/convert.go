package cmd

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"billing/internal/currency"
)

var convertCmd = &cobra.Command{
	Use:   "convert <amount> <from> <to>",
	Short: "Convert an amount between supported currencies",
	Long: `Convert translates an amount from one currency to another using the
configured exchange rates, pivoting through USD.

Examples:
  billing convert 100 USD EUR
  billing convert 2500 ZAR GBP`,
	Args: cobra.ExactArgs(3),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}
	from := strings.ToUpper(args[1])
	to := strings.ToUpper(args[2])

	conv := currency.NewConverter()
	converted, err := conv.Convert(amount, from, to)
	if err != nil {
		return fmt.Errorf("supported currencies are %s: %w",
			strings.Join(conv.Codes(), ", "), err)
	}

	fmt.Printf("%s = %s\n", currency.Format(amount, from), currency.Format(converted, to))
	return nil
}
