package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jkaninda/bureau/internal/company"
	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/users"
)

var (
	companyName string
	companySlug string
	companyAll  bool

	userCompany string
	userName    string
	userEmail   string
	userRole    string
)

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Manage companies",
}

var companyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a company",
	RunE: withShared(func(ctx context.Context, sc *SharedComponents, _ []string) error {
		co, err := sc.Companies.Create(ctx, company.Input{Name: companyName, Slug: companySlug})
		if err != nil {
			return err
		}
		fmt.Printf("created company %s (%s)\n", co.Slug, co.ID)
		return nil
	}),
}

var companyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies",
	RunE: withShared(func(ctx context.Context, sc *SharedComponents, _ []string) error {
		companies, err := sc.Companies.List(ctx, !companyAll)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSLUG\tNAME\tACTIVE")
		for _, c := range companies {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", c.ID, c.Slug, c.Name, c.Active)
		}
		return tw.Flush()
	}),
}

var companyDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id|slug>",
	Short: "Deactivate a company; its data is kept",
	Args:  cobra.ExactArgs(1),
	RunE: withShared(func(ctx context.Context, sc *SharedComponents, args []string) error {
		co, err := sc.Companies.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		if err := sc.Companies.Deactivate(ctx, co.ID); err != nil {
			return err
		}
		fmt.Printf("deactivated company %s\n", co.Slug)
		return nil
	}),
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users of a company",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a user to a company",
	RunE: withShared(func(ctx context.Context, sc *SharedComponents, _ []string) error {
		scope, err := companyScope(ctx, sc, userCompany)
		if err != nil {
			return err
		}
		u, err := sc.Users.Create(ctx, scope, users.UserInput{Name: userName, Email: userEmail, Role: userRole})
		if err != nil {
			return err
		}
		fmt.Printf("created user %s (%s) with role %s\n", u.Email, u.ID, u.Role)
		return nil
	}),
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the users of a company",
	RunE: withShared(func(ctx context.Context, sc *SharedComponents, _ []string) error {
		scope, err := companyScope(ctx, sc, userCompany)
		if err != nil {
			return err
		}
		list, err := sc.Users.List(ctx, scope, storage.UserFilter{}, domain.Page{Limit: 500})
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tACTIVE")
		for _, u := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Email, u.Name, u.Role, u.Active)
		}
		return tw.Flush()
	}),
}

func init() {
	companyCreateCmd.Flags().StringVar(&companyName, "name", "", "company name")
	companyCreateCmd.Flags().StringVar(&companySlug, "slug", "", "URL-safe identifier (default: derived from name)")
	_ = companyCreateCmd.MarkFlagRequired("name")
	companyListCmd.Flags().BoolVar(&companyAll, "all", false, "include deactivated companies")
	companyCmd.AddCommand(companyCreateCmd, companyListCmd, companyDeactivateCmd)

	userCmd.PersistentFlags().StringVar(&userCompany, "company", "", "company id or slug")
	_ = userCmd.MarkPersistentFlagRequired("company")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&userRole, "role", "viewer", "role name")
	_ = userCreateCmd.MarkFlagRequired("email")
	userCmd.AddCommand(userCreateCmd, userListCmd)
}

// withShared adapts fn into a cobra RunE that loads config and builds the
// shared components with a quiet logger.
func withShared(fn func(ctx context.Context, sc *SharedComponents, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		sc, err := initShared(ctx, cfg, cliLogger())
		if err != nil {
			return err
		}
		defer sc.Cleanup()
		return fn(ctx, sc, args)
	}
}

// companyScope resolves ref to an active company and returns its scope.
func companyScope(ctx context.Context, sc *SharedComponents, ref string) (tenancy.Scope, error) {
	co, err := sc.Companies.Resolve(ctx, ref)
	if err != nil {
		return tenancy.Scope{}, fmt.Errorf("company %q: %w", ref, err)
	}
	return tenancy.Scoped(co.ID), nil
}
