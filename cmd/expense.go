package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"billing/internal/store"
	"billing/pkg/models"
)

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Record and list expenses",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Record an expense",
	Example: `  billing expense add 49.99 --category Software --description "CI minutes"
  billing expense add 1200 --category Travel --date 2026-08-12 --project p1`,
	Args: cobra.ExactArgs(1),
	RunE: runExpenseAdd,
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses",
	RunE:  runExpenseList,
}

func init() {
	rootCmd.AddCommand(expenseCmd)
	expenseCmd.AddCommand(expenseAddCmd)
	expenseCmd.AddCommand(expenseListCmd)

	expenseAddCmd.Flags().String("category", "", "Expense category")
	expenseAddCmd.Flags().String("description", "", "What the expense was for")
	expenseAddCmd.Flags().String("date", "", "Expense date (YYYY-MM-DD, default: today)")
	expenseAddCmd.Flags().String("project", "", "Project ID to attribute the expense to")
}

func runExpenseAdd(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}

	date := nowUTC()
	if v, _ := cmd.Flags().GetString("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fmt.Errorf("invalid date format. Use YYYY-MM-DD: %w", err)
		}
		date = parsed
	}
	category, _ := cmd.Flags().GetString("category")
	description, _ := cmd.Flags().GetString("description")
	projectID, _ := cmd.Flags().GetString("project")

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	expense := models.Expense{
		ID:          uuid.NewString(),
		Date:        date,
		Category:    category,
		Description: description,
		Amount:      amount,
		ProjectID:   projectID,
		CreatedAt:   nowUTC(),
	}
	err = st.Update(cmd.Context(), func(tx store.Tx) error {
		if expense.ProjectID != "" {
			if _, err := tx.GetProject(expense.ProjectID); err != nil {
				return err
			}
		}
		return tx.PutExpense(expense)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Recorded expense %s: %s on %s\n",
		expense.ID, amount.StringFixed(2), date.Format("2006-01-02"))
	return nil
}

func runExpenseList(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var expenses []models.Expense
	err = st.View(cmd.Context(), func(tx store.Tx) error {
		var err error
		expenses, err = tx.ListExpenses()
		return err
	})
	if err != nil {
		return err
	}

	if len(expenses) == 0 {
		fmt.Println("No expenses")
		return nil
	}
	for _, e := range expenses {
		category := e.Category
		if category == "" {
			category = "Uncategorized"
		}
		fmt.Printf("  %s  %s  %-15s %s  %s\n",
			e.ID, e.Date.Format("2006-01-02"), category, e.Amount.StringFixed(2), e.Description)
	}
	return nil
}
