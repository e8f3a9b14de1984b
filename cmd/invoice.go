package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"billing/internal/ledger"
	"billing/internal/store"
	"billing/pkg/models"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Create, pay and inspect invoices",
	Long: `Invoice subcommands manage the invoice ledger: create an invoice from
line items, record payments against it, override its status, show it, delete
it, or list what is still outstanding.

Payment status is always derived from recorded payments against the
tax-inclusive total; recording a payment re-derives it automatically.`,
}

var invoiceCreateCmd = &cobra.Command{
	Use:   "create <client-id>",
	Short: "Create an invoice for a client",
	Example: `  # One line item, default tax rate
  billing invoice create c1f0... --item "Consulting:1500"

  # Several items, explicit rate and due date
  billing invoice create c1f0... --item "Design:800" --item "Hosting:49.99" \
    --rate 15 --due 2026-10-01`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoiceCreate,
}

var invoicePayCmd = &cobra.Command{
	Use:   "pay <invoice-id> <amount>",
	Short: "Record a payment against an invoice",
	Args:  cobra.ExactArgs(2),
	RunE:  runInvoicePay,
}

var invoiceShowCmd = &cobra.Command{
	Use:   "show <invoice-id>",
	Short: "Print an invoice as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoiceShow,
}

var invoiceStatusCmd = &cobra.Command{
	Use:   "status <invoice-id> <status>",
	Short: "Override an invoice's payment status",
	Long: `Status forces an invoice to unpaid, partially_paid or paid regardless
of its recorded payments. The next recorded payment re-derives the status.`,
	Args: cobra.ExactArgs(2),
	RunE: runInvoiceStatus,
}

var invoiceDeleteCmd = &cobra.Command{
	Use:   "delete <invoice-id>",
	Short: "Delete an invoice and its payments",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoiceDelete,
}

var invoiceOutstandingCmd = &cobra.Command{
	Use:   "outstanding",
	Short: "List invoices that are not fully paid",
	RunE:  runInvoiceOutstanding,
}

func init() {
	rootCmd.AddCommand(invoiceCmd)
	invoiceCmd.AddCommand(invoiceCreateCmd)
	invoiceCmd.AddCommand(invoicePayCmd)
	invoiceCmd.AddCommand(invoiceShowCmd)
	invoiceCmd.AddCommand(invoiceStatusCmd)
	invoiceCmd.AddCommand(invoiceDeleteCmd)
	invoiceCmd.AddCommand(invoiceOutstandingCmd)

	invoiceCreateCmd.Flags().StringArray("item", nil, `Line item as "description:price" (repeatable)`)
	invoiceCreateCmd.Flags().Float64("rate", -1, "Tax rate in percent (default: configured rate)")
	invoiceCreateCmd.Flags().String("currency", "", "Invoice currency (default: configured currency)")
	invoiceCreateCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	invoiceCreateCmd.Flags().String("project", "", "Project ID to bill against")
	invoiceCreateCmd.Flags().String("notes", "", "Free-form notes")

	invoicePayCmd.Flags().String("method", "bank_transfer", "Payment method")
	invoicePayCmd.Flags().String("notes", "", "Payment notes")
}

func runInvoiceCreate(cmd *cobra.Command, args []string) error {
	items, _ := cmd.Flags().GetStringArray("item")
	lineItems, err := parseLineItems(items)
	if err != nil {
		return err
	}

	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rate := decimal.NewFromFloat(cfg.DefaultTaxRate)
	if v, _ := cmd.Flags().GetFloat64("rate"); v >= 0 {
		rate = decimal.NewFromFloat(v)
	}
	code := cfg.DefaultCurrency
	if v, _ := cmd.Flags().GetString("currency"); v != "" {
		code = v
	}

	var dueDate *time.Time
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fmt.Errorf("invalid due date format. Use YYYY-MM-DD: %w", err)
		}
		dueDate = &parsed
	}
	projectID, _ := cmd.Flags().GetString("project")
	notes, _ := cmd.Flags().GetString("notes")

	led := ledger.New(st)
	inv, err := led.CreateInvoice(cmd.Context(), ledger.InvoiceDraft{
		ClientID:  args[0],
		ProjectID: projectID,
		LineItems: lineItems,
		TaxRate:   rate,
		Currency:  code,
		Notes:     notes,
		DueDate:   dueDate,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created invoice %s\n", inv.ID)
	fmt.Printf("  Subtotal: %s  Tax: %s  Total: %s %s\n",
		inv.Subtotal.StringFixed(2), inv.TaxAmount.StringFixed(2),
		inv.Total.StringFixed(2), inv.Currency)
	return nil
}

func runInvoicePay(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	method, _ := cmd.Flags().GetString("method")
	notes, _ := cmd.Flags().GetString("notes")

	led := ledger.New(st)
	payment, err := led.RecordPayment(cmd.Context(), args[0], amount, nowUTC(), method, notes)
	if err != nil {
		return err
	}
	inv, err := led.GetInvoice(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Recorded payment %s of %s against %s; status is now %s\n",
		payment.ID, amount.StringFixed(2), inv.ID, inv.Status)
	return nil
}

func runInvoiceShow(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	inv, err := ledger.New(st).GetInvoice(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode invoice: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runInvoiceStatus(cmd *cobra.Command, args []string) error {
	status := models.InvoiceStatus(args[1])

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := ledger.New(st).OverrideStatus(cmd.Context(), args[0], status); err != nil {
		return err
	}
	fmt.Printf("Invoice %s set to %s\n", args[0], status)
	return nil
}

func runInvoiceDelete(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := ledger.New(st).DeleteInvoice(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted invoice %s and its payments\n", args[0])
	return nil
}

func runInvoiceOutstanding(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	led := ledger.New(st)
	var open []models.Invoice
	err = st.View(cmd.Context(), func(tx store.Tx) error {
		invoices, err := tx.ListInvoices()
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			if inv.Status != models.StatusPaid {
				open = append(open, inv)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(open) == 0 {
		fmt.Println("No outstanding invoices")
		return nil
	}
	for _, inv := range open {
		outstanding, err := led.Outstanding(cmd.Context(), inv.ID)
		if err != nil {
			return err
		}
		due := "no due date"
		if inv.DueDate != nil {
			due = "due " + inv.DueDate.Format("2006-01-02")
		}
		fmt.Printf("  %s  %s of %s %s open  %s  %s\n",
			inv.ID, outstanding.StringFixed(2), inv.Total.StringFixed(2),
			inv.Currency, inv.Status, due)
	}
	return nil
}

// parseLineItems parses repeated "description:price" flags. The last colon
// splits description from price so descriptions may contain colons.
func parseLineItems(items []string) ([]models.LineItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("at least one --item is required")
	}
	parsed := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		idx := -1
		for i := len(item) - 1; i >= 0; i-- {
			if item[i] == ':' {
				idx = i
				break
			}
		}
		if idx <= 0 || idx == len(item)-1 {
			return nil, fmt.Errorf(`invalid line item %q: expected "description:price"`, item)
		}
		price, err := decimal.NewFromString(item[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid price in line item %q: %w", item, err)
		}
		parsed = append(parsed, models.LineItem{Description: item[:idx], Price: price})
	}
	return parsed, nil
}
