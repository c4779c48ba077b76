package postgres

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/storage"
)

// Store implements storage.Store backed by PostgreSQL.
// It wraps the existing DB and lazily creates sub-store repositories.
type Store struct {
	pgDB *DB

	mu         sync.Mutex
	companies  storage.CompanyStore
	users      storage.UserStore
	accounts   storage.AccountStore
	taxRates   storage.TaxRateStore
	currencies storage.CurrencyStore
	visitors   storage.VisitorStore
	visits     storage.VisitStore
	audit      storage.AuditStore
}

// NewStore wraps an existing DB as a unified Store.
func NewStore(pgDB *DB) *Store {
	return &Store{pgDB: pgDB}
}

func (s *Store) Migrate(_ context.Context) error {
	return AutoMigrate(s.pgDB.GormDB())
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pgDB.Ping(ctx)
}

func (s *Store) Close() error {
	return s.pgDB.Close()
}

func (s *Store) Driver() string {
	return storage.DriverPostgres
}

// --- Sub-store accessors ---

func (s *Store) Companies() storage.CompanyStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.companies == nil {
		s.companies = NewCompanyRepository(s.pgDB.GormDB())
	}
	return s.companies
}

func (s *Store) Users() storage.UserStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = NewUserRepository(s.pgDB.GormDB())
	}
	return s.users
}

func (s *Store) Accounts() storage.AccountStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts == nil {
		s.accounts = NewAccountRepository(s.pgDB.GormDB())
	}
	return s.accounts
}

func (s *Store) TaxRates() storage.TaxRateStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taxRates == nil {
		s.taxRates = NewTaxRateRepository(s.pgDB.GormDB())
	}
	return s.taxRates
}

func (s *Store) Currencies() storage.CurrencyStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currencies == nil {
		s.currencies = NewCurrencyRepository(s.pgDB.GormDB())
	}
	return s.currencies
}

func (s *Store) Visitors() storage.VisitorStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visitors == nil {
		s.visitors = NewVisitorRepository(s.pgDB.GormDB())
	}
	return s.visitors
}

func (s *Store) Visits() storage.VisitStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visits == nil {
		s.visits = NewVisitRepository(s.pgDB.GormDB())
	}
	return s.visits
}

func (s *Store) Audit() storage.AuditStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audit == nil {
		s.audit = NewAuditRepository(s.pgDB.GormDB())
	}
	return s.audit
}

// compile-time interface check
var _ storage.Store = (*Store)(nil)

// GormDB returns the underlying GORM connection, for plugins and tooling.
func (s *Store) GormDB() *gorm.DB {
	return s.pgDB.GormDB()
}
