package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/benvon/expense-console/internal/models"
	"github.com/benvon/expense-console/internal/validation"
	"github.com/benvon/expense-console/internal/views"
	"github.com/spf13/cobra"
)

// NewExpensesCmd creates the expenses command with its subcommands
func NewExpensesCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "List, create and act on expenses",
		Long:  "Approvers see every expense; everyone else sees their own.",
		RunE:  withApp(opts, views.RouteExpenses, runExpensesList),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List expenses",
		RunE:  withApp(opts, views.RouteExpenses, runExpensesList),
	})
	cmd.AddCommand(newExpensesCreateCmd(opts))
	cmd.AddCommand(newExpensesActCmd(opts, "approve", models.ExpenseStatusApproved))
	cmd.AddCommand(newExpensesActCmd(opts, "reject", models.ExpenseStatusRejected))
	cmd.AddCommand(newExpensesDeleteCmd(opts))
	cmd.AddCommand(newExpensesReceiptsCmd(opts))
	cmd.AddCommand(newExpensesDownloadCmd(opts))
	return cmd
}

func (a *App) expensesPage() *views.ExpensesPage {
	return views.NewExpensesPage(a.session, a.services, a.logger)
}

func runExpensesList(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
	page := app.expensesPage()
	if err := page.Load(ctx); err != nil {
		return app.viewError(page.Alert(), err)
	}
	if _, usedDefaults := page.LoadCategories(ctx); usedDefaults {
		app.logger.Debug("using_default_categories")
	}

	expenses := page.Expenses()
	rows := make([][]string, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.ExpenseDate,
			page.CategoryName(e.CategoryID),
			e.Description,
			money(e.Amount),
			string(e.EffectiveStatus()),
		})
	}
	if !app.opts.JSON {
		app.printf("%s (%d pending)\n", page.Title(), page.PendingCount())
	}
	return app.printTable(expenses, []string{"ID", "DATE", "CATEGORY", "DESCRIPTION", "AMOUNT", "STATUS"}, rows)
}

func newExpensesCreateCmd(opts *Options) *cobra.Command {
	var (
		form        views.ExpenseForm
		receiptPath string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new expense",
		RunE: withApp(opts, views.RouteExpenses, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			var receipt *views.ReceiptFile
			if receiptPath != "" {
				data, err := os.ReadFile(receiptPath)
				if err != nil {
					return fmt.Errorf("read receipt: %w", err)
				}
				receipt = &views.ReceiptFile{Name: filepath.Base(receiptPath), Data: data}
			}

			page := app.expensesPage()
			created, err := page.Create(ctx, form, receipt)
			if errors.Is(err, views.ErrReceiptUpload) {
				app.printf("Created expense %d\n", created.ID)
				fmt.Fprintln(cmd.ErrOrStderr(), page.Alert())
				return nil
			}
			if err != nil {
				return app.viewError(page.Alert(), err)
			}
			if app.opts.JSON {
				return app.printJSON(created)
			}
			app.printf("Created expense %d (%s)\n", created.ID, created.EffectiveStatus())
			return nil
		}),
	}
	cmd.Flags().Float64Var(&form.Amount, "amount", 0, "Amount")
	cmd.Flags().StringVar(&form.Description, "description", "", "Description")
	cmd.Flags().StringVar(&form.ExpenseDate, "date", time.Now().Format(validation.DateLayout), "Expense date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&form.CategoryID, "category", 0, "Category id (see 'expensectl categories')")
	cmd.Flags().StringVar(&receiptPath, "receipt", "", "Receipt file to attach (PNG, JPEG or PDF, under 5MB)")
	return cmd
}

func newExpensesActCmd(opts *Options, use string, status models.ExpenseStatus) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   use + " EXPENSE_ID",
		Short: fmt.Sprintf("Mark an expense %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, views.RouteExpenses, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page := app.expensesPage()
			if status == models.ExpenseStatusApproved {
				err = page.Approve(ctx, id, comment)
			} else {
				err = page.Reject(ctx, id, comment)
			}
			if err != nil {
				return app.viewError(page.Alert(), err)
			}
			app.printf("Expense %d %s\n", id, status)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&comment, "comment", "c", "", "Approval comment")
	return cmd
}

func newExpensesDeleteCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete EXPENSE_ID",
		Short: "Delete an expense (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, views.RouteExpenses, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page := app.expensesPage()
			if err := page.Delete(ctx, id); err != nil {
				return app.viewError(page.Alert(), err)
			}
			app.printf("Deleted expense %d\n", id)
			return nil
		}),
	}
}

func newExpensesReceiptsCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "receipts EXPENSE_ID",
		Short: "List the receipts attached to an expense",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, views.RouteExpenses, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page := app.expensesPage()
			receipts, err := page.Receipts(ctx, id)
			if err != nil {
				return app.viewError(page.Alert(), err)
			}
			rows := make([][]string, 0, len(receipts))
			for _, r := range receipts {
				rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.FileName, r.FileType, r.UploadDate})
			}
			return app.printTable(receipts, []string{"ID", "FILE", "TYPE", "UPLOADED"}, rows)
		}),
	}
}

func newExpensesDownloadCmd(opts *Options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download FILE_NAME",
		Short: "Download a receipt file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, views.RouteExpenses, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			page := app.expensesPage()
			data, contentType, err := page.DownloadReceipt(ctx, args[0])
			if err != nil {
				return app.viewError(page.Alert(), err)
			}
			if output == "" {
				output = filepath.Base(args[0])
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("write receipt: %w", err)
			}
			app.printf("Saved %s (%s, %d bytes)\n", output, contentType, len(data))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (defaults to the file name)")
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
