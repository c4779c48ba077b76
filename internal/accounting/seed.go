package accounting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// defaultChart is the chart of accounts every new company starts from.
var defaultChart = []struct {
	code string
	name string
	typ  domain.AccountType
}{
	{"1000", "Cash", domain.AccountAsset},
	{"1100", "Bank", domain.AccountAsset},
	{"1200", "Accounts Receivable", domain.AccountAsset},
	{"1300", "Inventory", domain.AccountAsset},
	{"1500", "Fixed Assets", domain.AccountAsset},
	{"2000", "Accounts Payable", domain.AccountLiability},
	{"2100", "Tax Payable", domain.AccountLiability},
	{"2200", "Accrued Liabilities", domain.AccountLiability},
	{"3000", "Owner's Equity", domain.AccountEquity},
	{"3100", "Retained Earnings", domain.AccountEquity},
	{"4000", "Sales", domain.AccountIncome},
	{"4100", "Service Revenue", domain.AccountIncome},
	{"5000", "Cost of Goods Sold", domain.AccountExpense},
	{"6000", "Salaries", domain.AccountExpense},
	{"6100", "Rent", domain.AccountExpense},
	{"6200", "Utilities", domain.AccountExpense},
	{"6300", "Bank Charges", domain.AccountExpense},
}

// DefaultChartSize is the number of accounts SeedDefaults writes.
var DefaultChartSize = len(defaultChart)

// SeedDefaults upserts the default chart of accounts for the scoped company.
// Existing codes keep their id, parent and active flag; running it again is a
// no-op apart from restoring the default names. The scope must be Scoped:
// an Unscoped seed has no company to stamp and fails the NOT NULL check.
func (s *Service) SeedDefaults(ctx context.Context, scope tenancy.Scope) (int, error) {
	accounts := make([]domain.Account, len(defaultChart))
	for i, d := range defaultChart {
		accounts[i] = domain.Account{Code: d.code, Name: d.name, Type: d.typ, Active: true}
	}
	if err := s.accounts.Upsert(ctx, scope, accounts); err != nil {
		return 0, fmt.Errorf("seeding default chart: %w", err)
	}
	s.logger.InfoContext(ctx, "default chart of accounts seeded",
		slog.String("scope", scope.String()),
		slog.Int("accounts", len(accounts)),
	)
	return len(accounts), nil
}
