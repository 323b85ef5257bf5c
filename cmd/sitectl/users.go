package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/duynhne/cms-service/internal/core/domain"
	logicv1 "github.com/duynhne/cms-service/internal/logic/v1"
)

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and create user accounts",
	}
	cmd.AddCommand(usersListCmd(a), usersCreateCmd(a))
	return cmd
}

func usersListCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every registered user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			stores, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}

			users, err := listUsers(ctx, logicv1.NewCredentialStore(stores.Users, cfg.Auth.BcryptCost, logicv1.WithHashTimeout(cfg.Auth.HashTimeout)), limit, offset)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(users)
			}
			if len(users) == 0 {
				fmt.Fprintln(a.out, "No users found.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum users to print (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Users to skip")
	return cmd
}

// listPageSize matches the repository's default page.
const listPageSize = 100

// listUsers returns one page when limit > 0 and pages through everything
// otherwise.
func listUsers(ctx context.Context, creds *logicv1.CredentialStore, limit, offset int) ([]domain.User, error) {
	if limit > 0 {
		return creds.ListUsers(ctx, limit, offset)
	}

	var all []domain.User
	for {
		page, err := creds.ListUsers(ctx, listPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
		offset += len(page)
	}
}

func usersCreateCmd(a *app) *cobra.Command {
	var (
		email    string
		name     string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with any role",
		Long: `Create a user account. Unlike self-registration through the API,
which always assigns the viewer role, this command can create editors and
admins. The same input policy and password hashing apply.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			if err := logicv1.ValidateRegister(domain.RegisterRequest{Name: name, Email: email, Password: password}); err != nil {
				return err
			}

			ctx := cmd.Context()
			stores, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}

			user, err := logicv1.NewCredentialStore(stores.Users, cfg.Auth.BcryptCost, logicv1.WithHashTimeout(cfg.Auth.HashTimeout)).CreateUser(ctx, email, name, password, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s user %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&password, "password", "", "Initial password (required)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleViewer), "Role: admin, editor or viewer")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
