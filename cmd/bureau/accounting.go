package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var seedCompany string

var accountingCmd = &cobra.Command{
	Use:   "accounting",
	Short: "Accounting maintenance",
}

var accountingSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default chart of accounts",
	Long: `Seed upserts the default chart of accounts for one company, or for
every active company when --company is not set. Existing accounts keep
their id, parent and active flag.`,
	RunE: withShared(func(ctx context.Context, sc *SharedComponents, _ []string) error {
		refs := []string{seedCompany}
		if seedCompany == "" {
			companies, err := sc.Companies.List(ctx, true)
			if err != nil {
				return err
			}
			refs = refs[:0]
			for _, c := range companies {
				refs = append(refs, c.ID.String())
			}
		}

		for _, ref := range refs {
			scope, err := companyScope(ctx, sc, ref)
			if err != nil {
				return err
			}
			n, err := sc.Accounting.SeedDefaults(ctx, scope)
			if err != nil {
				return fmt.Errorf("seeding %s: %w", ref, err)
			}
			fmt.Printf("%s: %d accounts seeded\n", ref, n)
		}
		return nil
	}),
}

func init() {
	accountingSeedCmd.Flags().StringVar(&seedCompany, "company", "", "company id or slug (default: all active companies)")
	accountingCmd.AddCommand(accountingSeedCmd)
}
