package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"billing/internal/store"
	"billing/pkg/models"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <client-id> <name>",
	Short: "Add a project for a client",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectList,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)

	projectAddCmd.Flags().Float64("budget", 0, "Project budget (0 for none)")
	projectAddCmd.Flags().String("description", "", "Project description")
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	budget, _ := cmd.Flags().GetFloat64("budget")
	if budget < 0 {
		return fmt.Errorf("budget must not be negative")
	}
	description, _ := cmd.Flags().GetString("description")

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	project := models.Project{
		ID:          uuid.NewString(),
		ClientID:    args[0],
		Name:        args[1],
		Budget:      decimal.NewFromFloat(budget),
		Status:      "active",
		Description: description,
		CreatedAt:   nowUTC(),
	}
	err = st.Update(cmd.Context(), func(tx store.Tx) error {
		if _, err := tx.GetClient(project.ClientID); err != nil {
			return err
		}
		return tx.PutProject(project)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Added project %s (%s)\n", project.Name, project.ID)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var projects []models.Project
	err = st.View(cmd.Context(), func(tx store.Tx) error {
		var err error
		projects, err = tx.ListProjects()
		return err
	})
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Println("No projects")
		return nil
	}
	for _, p := range projects {
		fmt.Printf("  %s  %-20s client %s  budget %s  %s\n",
			p.ID, p.Name, p.ClientID, p.Budget.StringFixed(2), p.Status)
	}
	return nil
}
