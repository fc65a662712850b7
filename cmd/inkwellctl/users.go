package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/users"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(createAdminCmd())
	cmd.AddCommand(listUsersCmd())
	return cmd
}

func createAdminCmd() *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN user; the password is read from INKWELL_ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("INKWELL_ADMIN_PASSWORD")
			if password == "" {
				return errors.New("INKWELL_ADMIN_PASSWORD must be set")
			}
			pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := users.NewService(users.NewRepository(pool), nil, logger())
			u, err := svc.Create(cmd.Context(), users.CreateInput{Email: email, Name: name, Password: password, Role: auth.RoleAdmin})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			return render([]users.User{*u}, userTable)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func listUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			list, err := users.NewService(users.NewRepository(pool), nil, logger()).ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			return render(list, userTable)
		},
	}
}

func userTable(list []users.User) ([]string, [][]string) {
	rows := make([][]string, 0, len(list))
	for _, u := range list {
		rows = append(rows, []string{u.ID, u.Email, u.Name, string(u.Role), yesNo(u.IsActive)})
	}
	return []string{"ID", "Email", "Name", "Role", "Active"}, rows
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func splitScopes(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
