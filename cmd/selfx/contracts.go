package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects",
}

var projectsRegisterCmd = &cobra.Command{
	Use:   "register REPO",
	Short: "Register a repository as a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")

		a, err := newApp(cmd.Context(), "RegisterProject")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.RegisterProject(cmd.Context(), viper.GetString("provider"), args[0], owner)
		if err != nil {
			return err
		}
		fmt.Printf("Registered %s owned by %s\n", p.ID(), p.Owner)
		return nil
	},
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListProjects")
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.Projects(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(projects)
		}
		if len(projects) == 0 {
			fmt.Println("No projects registered.")
			return nil
		}
		tw := newTable("Provider", "Repository", "Owner")
		for _, p := range projects {
			tw.AppendRow([]any{p.Provider, p.RepoFullName, p.Owner})
		}
		tw.Render()
		return nil
	},
}

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Manage contracts",
}

var contractsListCmd = &cobra.Command{
	Use:   "list REPO",
	Short: "List the contracts of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListContracts")
		if err != nil {
			return err
		}
		defer a.Close()

		contracts, err := a.Contracts(cmd.Context(), viper.GetString("provider"), args[0])
		if err != nil {
			return err
		}
		if jsonOutput() {
			type row struct {
				Contributor string `json:"contributor"`
				Role        string `json:"role"`
				HourlyRate  string `json:"hourlyRate"`
			}
			rows := make([]row, 0, len(contracts))
			for _, c := range contracts {
				rows = append(rows, row{c.Contributor().Username, string(c.Role()), c.HourlyRate().String()})
			}
			return printJSON(rows)
		}
		if len(contracts) == 0 {
			fmt.Println("No contracts.")
			return nil
		}
		tw := newTable("Contributor", "Role", "Hourly rate (cents)")
		for _, c := range contracts {
			tw.AppendRow([]any{c.Contributor().Username, c.Role(), c.HourlyRate().String()})
		}
		tw.Render()
		return nil
	},
}

var contractsRegisterCmd = &cobra.Command{
	Use:   "register REPO USERNAME",
	Short: "Bind a contributor to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		rate, _ := cmd.Flags().GetString("rate")

		a, err := newApp(cmd.Context(), "RegisterContract")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.RegisterContract(cmd.Context(), viper.GetString("provider"), args[0], args[1], rate, role)
		if err != nil {
			return err
		}
		fmt.Printf("Registered contract %s at %s cents/hour\n", c.ID(), c.HourlyRate())
		return nil
	},
}

var contractsInvoicesCmd = &cobra.Command{
	Use:   "invoices REPO USERNAME",
	Short: "List the invoices of a contract",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")

		a, err := newApp(cmd.Context(), "ContractInvoices")
		if err != nil {
			return err
		}
		defer a.Close()

		invoices, err := a.ContractInvoices(cmd.Context(), viper.GetString("provider"), args[0], args[1], role)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(invoices)
		}
		if len(invoices) == 0 {
			fmt.Println("No invoices.")
			return nil
		}
		tw := newTable("ID", "Created", "Tasks", "Amount (cents)")
		for _, inv := range invoices {
			tw.AppendRow([]any{inv.ID, inv.CreatedAt.Format("2006-01-02 15:04"), len(inv.Tasks), inv.Amount.String()})
		}
		tw.Render()
		return nil
	},
}

func init() {
	projectsRegisterCmd.Flags().String("owner", "", "owner username (default: the repository owner)")
	projectsCmd.AddCommand(projectsRegisterCmd)
	projectsCmd.AddCommand(projectsListCmd)

	contractsRegisterCmd.Flags().String("role", "DEV", "role of the contributor")
	contractsRegisterCmd.Flags().String("rate", "0", "hourly rate in USD cents")
	contractsInvoicesCmd.Flags().String("role", "DEV", "role of the contributor")
	contractsCmd.AddCommand(contractsListCmd)
	contractsCmd.AddCommand(contractsRegisterCmd)
	contractsCmd.AddCommand(contractsInvoicesCmd)
}
