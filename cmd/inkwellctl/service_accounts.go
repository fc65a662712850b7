package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/serviceaccounts"
)

func serviceAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "service-accounts",
		Aliases: []string{"sa"},
		Short:   "Manage service-account API tokens",
	}
	cmd.AddCommand(createServiceAccountCmd())
	cmd.AddCommand(listServiceAccountsCmd())
	cmd.AddCommand(revokeServiceAccountCmd())
	cmd.AddCommand(deleteServiceAccountCmd())
	return cmd
}

// withService opens a pool, resolves the owning admin and runs fn.
func withService(cmd *cobra.Command, ownerEmail string, fn func(*serviceaccounts.Service, auth.Principal) error) error {
	pool, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	var actor auth.Principal
	if ownerEmail != "" {
		owner, err := auth.NewRepository(pool).FindByEmail(cmd.Context(), ownerEmail)
		if errors.Is(err, httpx.ErrNotFound) {
			return fmt.Errorf("no user with email %s", ownerEmail)
		}
		if err != nil {
			return err
		}
		if owner.Role != auth.RoleAdmin || !owner.IsActive {
			return fmt.Errorf("%s is not an active admin", ownerEmail)
		}
		actor = auth.NewSessionPrincipal(owner.ID, owner.Email, owner.Role)
	}
	svc := serviceaccounts.NewService(serviceaccounts.NewRepository(pool), auth.NewTokenCodec(tokenCost, logger()), nil, logger())
	return fn(svc, actor)
}

func createServiceAccountCmd() *cobra.Command {
	var owner, name, description string
	var scopes []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a service account and print its token once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, owner, func(svc *serviceaccounts.Service, actor auth.Principal) error {
				created, err := svc.Create(cmd.Context(), actor, serviceaccounts.CreateInput{
					Name:        name,
					Description: description,
					Scopes:      splitScopes(scopes),
				})
				if err != nil {
					return err
				}
				if outputFormat == "json" {
					return outputJSON(created)
				}
				if err := render([]serviceaccounts.ServiceAccount{created.Account}, accountTable); err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, "Token (shown once, store it now):")
				fmt.Println(created.Token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Email of the admin that owns the account")
	cmd.Flags().StringVar(&name, "name", "", "Account name")
	cmd.Flags().StringVar(&description, "description", "", "Optional description")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scopes to grant ("+strings.Join(auth.AllowedScopes(), ", ")+")")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func listServiceAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List service accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, "", func(svc *serviceaccounts.Service, _ auth.Principal) error {
				accounts, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				return render(accounts, accountTable)
			})
		},
	}
}

func revokeServiceAccountCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "revoke ID",
		Short: "Permanently revoke a service account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, owner, func(svc *serviceaccounts.Service, actor auth.Principal) error {
				if err := svc.Revoke(cmd.Context(), actor, args[0]); err != nil {
					return err
				}
				fmt.Printf("revoked %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "as", "", "Email of the admin performing the revocation")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func deleteServiceAccountCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a service account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, owner, func(svc *serviceaccounts.Service, actor auth.Principal) error {
				if err := svc.Delete(cmd.Context(), actor, args[0]); err != nil {
					return err
				}
				fmt.Printf("deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "as", "", "Email of the admin performing the deletion")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func accountTable(accounts []serviceaccounts.ServiceAccount) ([]string, [][]string) {
	rows := make([][]string, 0, len(accounts))
	for _, sa := range accounts {
		lastUsed := "never"
		if sa.LastUsedAt != nil {
			lastUsed = formatTimestamp(*sa.LastUsedAt)
		}
		status := "active"
		if sa.Revoked {
			status = "revoked"
		}
		rows = append(rows, []string{sa.ID, sa.Name, strings.Join(sa.Scopes, ","), status, lastUsed, formatTimestamp(sa.CreatedAt)})
	}
	return []string{"ID", "Name", "Scopes", "Status", "Last Used", "Created"}, rows
}
