package commands

import (
	"context"
	"strconv"

	"github.com/benvon/expense-console/internal/models"
	"github.com/benvon/expense-console/internal/services/backend"
	"github.com/benvon/expense-console/internal/views"
	"github.com/spf13/cobra"
)

// pageFlags binds --page, --size and --sort
func pageFlags(cmd *cobra.Command, p *models.Pageable) {
	cmd.Flags().IntVar(&p.Page, "page", 0, "Page number, starting at 0")
	cmd.Flags().IntVar(&p.Size, "size", 20, "Page size")
	cmd.Flags().StringVar(&p.Sort, "sort", "", "Sort as field,asc|desc")
}

// newListCmd lists one page of a resource as a table
func newListCmd[T any](opts *Options, use, short string, resource func(*backend.Services) *backend.Resource[T], header []string, row func(T) []string) *cobra.Command {
	var pageable models.Pageable
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: withApp(opts, views.RouteDashboard, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			page, err := resource(app.services).List(ctx, &pageable)
			if err != nil {
				return app.viewError(views.Message(err), err)
			}
			items := page.Items()
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, row(item))
			}
			if err := app.printTable(page, header, rows); err != nil {
				return err
			}
			if !app.opts.JSON && page.TotalPages > 1 {
				app.printf("page %d of %d (%d total)\n", page.Number+1, page.TotalPages, page.TotalElements)
			}
			return nil
		}),
	}
	pageFlags(cmd, &pageable)
	return cmd
}

// newDeleteCmd deletes one record of a resource by id
func newDeleteCmd[T any](opts *Options, short string, resource func(*backend.Services) *backend.Resource[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, views.RouteDashboard, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := resource(app.services).Delete(ctx, id); err != nil {
				return app.viewError(views.Message(err), err)
			}
			app.printf("Deleted %d\n", id)
			return nil
		}),
	}
}

func idString(v int64) string { return strconv.FormatInt(v, 10) }

// NewCategoriesCmd creates the categories command
func NewCategoriesCmd(opts *Options) *cobra.Command {
	categories := func(s *backend.Services) *backend.Resource[models.Category] { return s.Categories.Resource }

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List expense categories",
		RunE: withApp(opts, views.RouteExpenses, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			cats, usedDefaults := app.expensesPage().LoadCategories(ctx)
			rows := make([][]string, 0, len(cats))
			for _, c := range cats {
				rows = append(rows, []string{idString(c.ID), c.CategoryName, c.Description})
			}
			if err := app.printTable(cats, []string{"ID", "NAME", "DESCRIPTION"}, rows); err != nil {
				return err
			}
			if usedDefaults && !app.opts.JSON {
				app.printf("(default categories; the API returned none)\n")
			}
			return nil
		}),
	}

	var category models.Category
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a category (admin only)",
		RunE: withApp(opts, views.RouteDashboard, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			created, err := app.services.Categories.Create(ctx, category)
			if err != nil {
				return app.viewError(views.Message(err), err)
			}
			app.printf("Created category %d %s\n", created.ID, created.CategoryName)
			return nil
		}),
	}
	create.Flags().StringVar(&category.CategoryName, "name", "", "Category name")
	create.Flags().StringVar(&category.Description, "description", "", "Description")

	cmd.AddCommand(create, newDeleteCmd(opts, "Delete a category (admin only)", categories))
	return cmd
}

// NewDepartmentsCmd creates the departments command
func NewDepartmentsCmd(opts *Options) *cobra.Command {
	departments := func(s *backend.Services) *backend.Resource[models.Department] { return s.Departments }

	cmd := newListCmd(opts, "departments", "List departments", departments,
		[]string{"ID", "NAME", "DESCRIPTION", "MANAGER"},
		func(d models.Department) []string {
			return []string{idString(d.ID), d.Name, d.Description, idString(d.ManagerID)}
		},
	)

	var department models.Department
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a department (admin only)",
		RunE: withApp(opts, views.RouteDashboard, func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			created, err := app.services.Departments.Create(ctx, department)
			if err != nil {
				return app.viewError(views.Message(err), err)
			}
			app.printf("Created department %d %s\n", created.ID, created.Name)
			return nil
		}),
	}
	create.Flags().StringVar(&department.Name, "name", "", "Department name")
	create.Flags().StringVar(&department.Description, "description", "", "Description")
	create.Flags().Int64Var(&department.ManagerID, "manager", 0, "Manager user id")

	cmd.AddCommand(create, newDeleteCmd(opts, "Delete a department (admin only)", departments))
	return cmd
}

// NewUsersCmd creates the users command
func NewUsersCmd(opts *Options) *cobra.Command {
	return newListCmd(opts, "users", "List user accounts",
		func(s *backend.Services) *backend.Resource[models.User] { return s.Users },
		[]string{"ID", "USERNAME", "EMAIL", "ROLE", "EMPLOYEE ID"},
		func(u models.User) []string {
			return []string{idString(u.ID), u.Username, u.Email, u.Role, u.EmployeeID}
		},
	)
}

// NewAuditLogsCmd creates the audit-logs command
func NewAuditLogsCmd(opts *Options) *cobra.Command {
	return newListCmd(opts, "audit-logs", "List the audit trail",
		func(s *backend.Services) *backend.Resource[models.AuditLog] { return s.AuditLogs },
		[]string{"ID", "TIME", "ACTION", "ENTITY", "ENTITY ID", "BY", "DETAILS"},
		func(l models.AuditLog) []string {
			return []string{idString(l.ID), l.Timestamp, l.Action, l.EntityType, idString(l.EntityID), l.PerformedBy, l.Details}
		},
	)
}

// NewApprovalsCmd creates the approvals command
func NewApprovalsCmd(opts *Options) *cobra.Command {
	return newListCmd(opts, "approvals", "List approval records",
		func(s *backend.Services) *backend.Resource[models.Approval] { return s.Approvals.Resource },
		[]string{"ID", "EXPENSE", "STATUS", "APPROVER", "DATE", "COMMENTS"},
		func(a models.Approval) []string {
			return []string{idString(a.ID), idString(a.ExpenseID), string(a.Status), idString(a.ApproverID), a.ApprovalDate, a.Comments}
		},
	)
}
