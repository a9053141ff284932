package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"avatarctl/internal/services"
	"avatarctl/internal/studio"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage accounts and monthly quotas (admin)",
	}
	cmd.AddCommand(newUserListCommand(ctx))
	cmd.AddCommand(newUserGetCommand(ctx))
	cmd.AddCommand(newUserCreateCommand(ctx))
	cmd.AddCommand(newUserUpdateCommand(ctx))
	cmd.AddCommand(newUserDeleteCommand(ctx))
	return cmd
}

func userRow(u studio.User) []string {
	limit := studio.LimitInputMinutes(u.MonthlyLimit)
	if limit == "" {
		limit = "unlimited"
	}
	return []string{
		u.ID,
		u.Email,
		humanize(string(u.Role)),
		yesNo(u.IsActive),
		studio.FormatUsage(u.MonthlyUsage),
		limit,
		fmt.Sprintf("%.0f%%", studio.UsagePercent(u.MonthlyUsage, u.MonthlyLimit)),
	}
}

func printUsers(cmd *cobra.Command, ctx *commandContext, users []studio.User) error {
	if ctx.jsonFlag {
		return writeJSONList(cmd, users)
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow(u))
	}
	printTable(cmd.OutOrStdout(), "No users",
		[]string{"ID", "Email", "Role", "Active", "Usage", "Limit (min)", "Used"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight})
	return nil
}

func newUserListCommand(ctx *commandContext) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with usage for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			users, err := client.ListUsers(commandCtx(cmd), month)
			if err != nil {
				return err
			}
			return printUsers(cmd, ctx, users)
		},
	}
	cmd.Flags().StringVarP(&month, "date", "d", "", "Usage month (YYYY-MM or MM.YYYY, default current)")
	return cmd
}

func newUserGetCommand(ctx *commandContext) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "user id")
			if err != nil {
				return err
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			user, err := client.GetUser(commandCtx(cmd), id, month)
			if err != nil {
				return err
			}
			return printUsers(cmd, ctx, []studio.User{user})
		},
	}
	cmd.Flags().StringVarP(&month, "date", "d", "", "Usage month (YYYY-MM or MM.YYYY, default current)")
	return cmd
}

func parseRoleFlag(value string) (studio.Role, error) {
	role, ok := studio.ParseRole(value)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "users", "", fmt.Sprintf("unknown role %q (want user or admin)", value), nil)
	}
	return role, nil
}

func newUserCreateCommand(ctx *commandContext) *cobra.Command {
	var email, password, role string
	var limitMinutes int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := studio.NewUser{Email: email, Password: password, Role: studio.RoleUser}
			if cmd.Flags().Changed("role") {
				r, err := parseRoleFlag(role)
				if err != nil {
					return err
				}
				in.Role = r
			}
			if cmd.Flags().Changed("limit-minutes") {
				in.MonthlyLimitMinutes = &limitMinutes
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			user, err := client.CreateUser(commandCtx(cmd), in)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Initial password")
	cmd.Flags().StringVar(&role, "role", "user", "Role: user or admin")
	cmd.Flags().IntVar(&limitMinutes, "limit-minutes", 0, "Monthly quota in minutes (0 for unlimited)")
	return cmd
}

func newUserUpdateCommand(ctx *commandContext) *cobra.Command {
	var email, password, role, active string
	var limitMinutes int

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Change account fields; unset flags are left unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "user id")
			if err != nil {
				return err
			}
			update := studio.UserUpdate{ID: id}
			flags := cmd.Flags()
			if flags.Changed("email") {
				update.Email = &email
			}
			if flags.Changed("password") {
				update.Password = &password
			}
			if flags.Changed("role") {
				r, err := parseRoleFlag(role)
				if err != nil {
					return err
				}
				update.Role = &r
			}
			if flags.Changed("limit-minutes") {
				update.MonthlyLimitMinutes = &limitMinutes
			}
			if flags.Changed("active") {
				value, err := strconv.ParseBool(active)
				if err != nil {
					return usageError("users", "update", fmt.Errorf("invalid --active value %q", active))
				}
				update.IsActive = &value
			}
			if update.Email == nil && update.Password == nil && update.Role == nil &&
				update.MonthlyLimitMinutes == nil && update.IsActive == nil {
				return usageError("users", "update", errNothingToDo)
			}

			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			user, err := client.UpdateUser(commandCtx(cmd), update)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated user %s\n", user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "New email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password")
	cmd.Flags().StringVar(&role, "role", "", "New role: user or admin")
	cmd.Flags().IntVar(&limitMinutes, "limit-minutes", 0, "New monthly quota in minutes (0 is sent as null, like an unset quota)")
	cmd.Flags().StringVar(&active, "active", "", "Enable (true) or disable (false) the account")
	return cmd
}

func newUserDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "user id")
			if err != nil {
				return err
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			if err := client.DeleteUser(commandCtx(cmd), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", id)
			return nil
		},
	}
}
