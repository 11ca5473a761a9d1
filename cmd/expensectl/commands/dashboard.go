package commands

import (
	"context"
	"fmt"

	"github.com/benvon/expense-console/internal/views"
	"github.com/spf13/cobra"
)

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the expense summary",
		RunE: withApp(opts, views.RouteDashboard, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			summary, err := views.NewDashboard(app.session, app.services.Expenses).Load(ctx)
			if err != nil {
				return app.viewError(views.Message(err), err)
			}
			if app.opts.JSON {
				return app.printJSON(summary)
			}
			app.printf("%s\n%s\n\n", summary.Greeting, summary.Subtitle)
			return app.printTable(summary,
				[]string{"TOTAL", "PENDING", "APPROVED", "REJECTED", "AMOUNT"},
				[][]string{{
					fmt.Sprint(summary.Total), fmt.Sprint(summary.Pending),
					fmt.Sprint(summary.Approved), fmt.Sprint(summary.Rejected),
					money(summary.TotalAmount),
				}},
			)
		}),
	}
}

// NewReportsCmd creates the reports command
func NewReportsCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "Show expense reports",
		RunE: withApp(opts, views.RouteReports, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			view := views.NewReportsPage().Load()
			if app.opts.JSON {
				return app.printJSON(view)
			}
			stats := make([][]string, 0, len(view.Stats))
			for _, s := range view.Stats {
				stats = append(stats, []string{s.Label, s.Value})
			}
			if err := app.printTable(view, []string{"STAT", "VALUE"}, stats); err != nil {
				return err
			}
			for _, r := range view.Reports {
				app.printf("\n%s  %s  [%s]\n", r.Title, r.Duration, r.Status)
				lines := make([][]string, 0, len(r.Lines))
				for _, l := range r.Lines {
					lines = append(lines, []string{l.Date, l.Description, l.Notes, money(l.Amount)})
				}
				lines = append(lines, []string{"", "", "Total", money(r.TotalAmount)})
				if err := app.printTable(r, []string{"DATE", "DESCRIPTION", "NOTES", "AMOUNT"}, lines); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

// NewThemeCmd creates the theme command
func NewThemeCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show the stored light/dark theme",
		RunE: withApp(opts, "", func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			current, err := app.theme.Current(ctx)
			if err != nil {
				return err
			}
			app.printf("%s\n", current)
			return nil
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark",
		RunE: withApp(opts, "", func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			next, err := app.theme.Toggle(ctx)
			if err != nil {
				return err
			}
			app.printf("%s\n", next)
			return nil
		}),
	})
	return cmd
}
