package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"billing/internal/store"
	"billing/pkg/models"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients",
}

var clientAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a client",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientAdd,
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	RunE:  runClientList,
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.AddCommand(clientAddCmd)
	clientCmd.AddCommand(clientListCmd)

	clientAddCmd.Flags().String("email", "", "Contact email")
	clientAddCmd.Flags().String("phone", "", "Contact phone")
}

func runClientAdd(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	client := models.Client{
		ID:        uuid.NewString(),
		Name:      args[0],
		Email:     email,
		Phone:     phone,
		CreatedAt: nowUTC(),
	}
	err = st.Update(cmd.Context(), func(tx store.Tx) error {
		return tx.PutClient(client)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Added client %s (%s)\n", client.Name, client.ID)
	return nil
}

func runClientList(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var clients []models.Client
	err = st.View(cmd.Context(), func(tx store.Tx) error {
		var err error
		clients, err = tx.ListClients()
		return err
	})
	if err != nil {
		return err
	}

	if len(clients) == 0 {
		fmt.Println("No clients")
		return nil
	}
	for _, c := range clients {
		fmt.Printf("  %s  %-20s %s\n", c.ID, c.Name, c.Email)
	}
	return nil
}
