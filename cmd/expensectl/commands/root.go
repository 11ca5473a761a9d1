package commands

import "github.com/spf13/cobra"

// NewRootCmd creates the expensectl root command with every subcommand
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:           "expensectl",
		Short:         "Command-line console for the expense management API",
		Long:          "Log in, review and submit expenses, act on approvals and manage receipts against the expense API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Print JSON instead of tables")
	root.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "Override EXPENSE_API_URL")

	root.AddCommand(
		NewLoginCmd(opts),
		NewLogoutCmd(opts),
		NewWhoamiCmd(opts),
		NewSignupCmd(opts),
		NewDashboardCmd(opts),
		NewExpensesCmd(opts),
		NewApprovalsCmd(opts),
		NewCategoriesCmd(opts),
		NewDepartmentsCmd(opts),
		NewUsersCmd(opts),
		NewAuditLogsCmd(opts),
		NewReportsCmd(opts),
		NewThemeCmd(opts),
	)
	return root
}
