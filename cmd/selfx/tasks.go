package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"selfx-go/internal/selfx"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage tasks",
}

var tasksRegisterCmd = &cobra.Command{
	Use:   "register REPO ISSUE",
	Short: "Turn an issue into an unassigned task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		estimation, _ := cmd.Flags().GetInt("estimation")

		a, err := newApp(cmd.Context(), "RegisterTask")
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.RegisterTask(cmd.Context(), viper.GetString("provider"), args[0], args[1], role, estimation)
		if err != nil {
			return err
		}
		fmt.Printf("Registered task %s of %s (%d min)\n", t.IssueID, t.Project, t.Estimation)
		return nil
	},
}

var tasksAssignCmd = &cobra.Command{
	Use:   "assign REPO ISSUE USERNAME",
	Short: "Assign a task to a contributor",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		a, err := newApp(cmd.Context(), "AssignTask")
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.AssignTask(cmd.Context(), viper.GetString("provider"), args[0], args[1], args[2], days)
		if err != nil {
			return err
		}
		fmt.Printf("Assigned task %s to %s, due %s\n", t.IssueID, t.Assignee, t.Deadline.Format("2006-01-02"))
		return nil
	},
}

var tasksContributorCmd = &cobra.Command{
	Use:   "contributor USERNAME",
	Short: "List the tasks assigned to a contributor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _ := cmd.Flags().GetString("repo")

		a, err := newApp(cmd.Context(), "ContributorTasks")
		if err != nil {
			return err
		}
		defer a.Close()

		provider := viper.GetString("provider")
		ct, err := a.ContributorTasks(cmd.Context(), args[0], provider)
		if err != nil {
			return err
		}
		var view selfx.Tasks = ct
		if repo != "" {
			if view, err = ct.OfProject(cmd.Context(), repo, provider); err != nil {
				return err
			}
		}
		tasks, err := view.All(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(tasks)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks assigned.")
			return nil
		}
		tw := newTable("Project", "Issue", "Role", "Estimation (min)", "Deadline")
		for _, t := range tasks {
			tw.AppendRow([]any{t.Project.String(), t.IssueID, t.Role, t.Estimation, t.Deadline.Format("2006-01-02")})
		}
		tw.Render()
		return nil
	},
}

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "Manage project wallets",
}

var walletsRegisterCmd = &cobra.Command{
	Use:   "register REPO TYPE",
	Short: "Register and activate a wallet (STRIPE or FAKE)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cash, _ := cmd.Flags().GetString("cash")
		identifier, _ := cmd.Flags().GetString("identifier")

		a, err := newApp(cmd.Context(), "RegisterWallet")
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := a.RegisterWallet(cmd.Context(), viper.GetString("provider"), args[0], args[1], cash, identifier)
		if err != nil {
			return err
		}
		fmt.Printf("Active wallet of %s: %s with %s cents\n", w.Project().ID(), w.Type(), w.Cash())
		return nil
	},
}

var walletsUpdateCashCmd = &cobra.Command{
	Use:   "update-cash REPO CENTS",
	Short: "Set the cash limit of the project's active wallet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "UpdateWalletCash")
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := a.UpdateWalletCash(cmd.Context(), viper.GetString("provider"), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Cash of %s wallet is now %s cents\n", w.Type(), w.Cash())
		return nil
	},
}

func init() {
	tasksRegisterCmd.Flags().String("role", "DEV", "role required by the task")
	tasksRegisterCmd.Flags().Int("estimation", 60, "estimation in minutes")
	tasksAssignCmd.Flags().Int("days", 10, "days until the deadline")
	tasksContributorCmd.Flags().String("repo", "", "only tasks of this repository")
	tasksCmd.AddCommand(tasksRegisterCmd)
	tasksCmd.AddCommand(tasksAssignCmd)
	tasksCmd.AddCommand(tasksContributorCmd)

	walletsRegisterCmd.Flags().String("cash", "0", "cash limit in USD cents")
	walletsRegisterCmd.Flags().String("identifier", "", "wallet identifier at the payment processor")
	walletsCmd.AddCommand(walletsRegisterCmd)
	walletsCmd.AddCommand(walletsUpdateCashCmd)
}
