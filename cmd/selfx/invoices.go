package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Emit, pay and archive invoices",
}

var invoicesEmitCmd = &cobra.Command{
	Use:   "emit REPO USERNAME ISSUE:MINUTES...",
	Short: "Invoice finished tasks of a contract",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")

		a, err := newApp(cmd.Context(), "EmitInvoice")
		if err != nil {
			return err
		}
		defer a.Close()

		inv, err := a.EmitInvoice(cmd.Context(), viper.GetString("provider"), args[0], args[1], role, args[2:])
		if err != nil {
			return err
		}
		fmt.Printf("Emitted invoice %s for %s cents\n", inv.ID, inv.Amount)
		return nil
	},
}

var invoicesPayCmd = &cobra.Command{
	Use:   "pay INVOICE",
	Short: "Pay an invoice from the project's active wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "PayInvoice")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.PayInvoice(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Paid %s cents, transaction %s\n", p.Value, p.TransactionID)
		return nil
	},
}

var invoicesArchiveCmd = &cobra.Command{
	Use:   "archive INVOICE",
	Short: "Store the invoice document in the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ArchiveInvoice")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateArchive(cmd.Context()); err != nil {
			return err
		}
		if err := a.ArchiveInvoice(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Archived invoice %s\n", args[0])
		return nil
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show INVOICE",
	Short: "Show an archived invoice document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ShowInvoice")
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if a.Encryptor() != nil {
			if passphrase, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}
		doc, err := a.ShowInvoice(cmd.Context(), args[0], passphrase)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(doc)
		}

		fmt.Printf("Invoice %s\n", doc.ID)
		fmt.Printf("Project:     %s:%s\n", doc.Provider, doc.Project)
		fmt.Printf("Contributor: %s (%s)\n", doc.Contributor, doc.Role)
		fmt.Printf("Created:     %s\n", doc.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("Amount:      %s cents\n", doc.Amount)
		fmt.Printf("Paid:        %t\n\n", doc.Paid)

		tw := newTable("Issue", "Minutes", "Value (cents)")
		for _, t := range doc.Tasks {
			tw.AppendRow([]any{t.IssueID, t.Estimation, t.Value})
		}
		tw.Render()

		if len(doc.Payments) > 0 {
			fmt.Println()
			pw := newTable("Time", "Status", "Value (cents)", "Transaction", "Reason")
			for _, p := range doc.Payments {
				pw.AppendRow([]any{p.PaymentTime.Format("2006-01-02 15:04"), p.Status, p.Value, p.TransactionID, p.FailReason})
			}
			pw.Render()
		}
		return nil
	},
}

func init() {
	invoicesEmitCmd.Flags().String("role", "DEV", "role of the contract")
	invoicesCmd.AddCommand(invoicesEmitCmd)
	invoicesCmd.AddCommand(invoicesPayCmd)
	invoicesCmd.AddCommand(invoicesArchiveCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
}
