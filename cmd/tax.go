package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"billing/internal/tax"
)

var taxCmd = &cobra.Command{
	Use:   "tax <amount>",
	Short: "Compute the tax breakdown for an amount",
	Long: `Tax computes the tax amount and tax-inclusive total for a net amount
at a given percentage rate, rounded to 2 decimal places.

Examples:
  billing tax 100
  billing tax 1250.50 --rate 15 --type VAT`,
	Args: cobra.ExactArgs(1),
	RunE: runTax,
}

func init() {
	rootCmd.AddCommand(taxCmd)
	taxCmd.Flags().Float64("rate", 15.0, "Tax rate in percent")
	taxCmd.Flags().String("type", "VAT", "Tax type label")
}

func runTax(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}
	rate, _ := cmd.Flags().GetFloat64("rate")
	taxType, _ := cmd.Flags().GetString("type")

	breakdown, err := tax.Calculate(amount, decimal.NewFromFloat(rate), taxType)
	if err != nil {
		return err
	}

	fmt.Printf("Subtotal:   %s\n", breakdown.Subtotal.StringFixed(2))
	fmt.Printf("%s (%s%%): %s\n", breakdown.TaxType, breakdown.TaxRate.String(), breakdown.TaxAmount.StringFixed(2))
	fmt.Printf("Total:      %s\n", breakdown.Total.StringFixed(2))
	return nil
}
