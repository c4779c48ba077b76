package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkaninda/bureau/internal/tenancy"
)

var (
	staleAfter   time.Duration
	staleCompany string
)

var visitsCmd = &cobra.Command{
	Use:   "visits",
	Short: "Visitor log maintenance",
}

var visitsCloseStaleCmd = &cobra.Command{
	Use:   "close-stale",
	Short: "Check out visits left open longer than the threshold",
	RunE: withShared(func(ctx context.Context, sc *SharedComponents, _ []string) error {
		olderThan := staleAfter
		if olderThan <= 0 {
			olderThan = sc.Config.Visitors.StaleAfter()
		}

		scope := tenancy.Unscoped()
		if staleCompany != "" {
			var err error
			if scope, err = companyScope(ctx, sc, staleCompany); err != nil {
				return err
			}
		}

		n, err := sc.Visitors.CloseStale(ctx, scope, olderThan)
		if err != nil {
			return err
		}
		fmt.Printf("closed %d visits open longer than %s\n", n, olderThan)
		return nil
	}),
}

func init() {
	visitsCloseStaleCmd.Flags().DurationVar(&staleAfter, "older-than", 0, "threshold (default: visitors.stale_after_hours)")
	visitsCloseStaleCmd.Flags().StringVar(&staleCompany, "company", "", "limit to one company id or slug (default: all companies)")
	visitsCmd.AddCommand(visitsCloseStaleCmd)
}
