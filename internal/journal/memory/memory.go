package memory

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/journal"
)

type Store struct {
	mu              sync.RWMutex
	sales           []domain.Sale
	auditLog        []domain.AuditEntry
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory operator accounts for dev/demo
// mode. Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD;
// hardcoded dev defaults are used with a warning when unset.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[journal-memory] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[journal-memory] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	return &Store{
		sales:           make([]domain.Sale, 0, 64),
		auditLog:        make([]domain.AuditEntry, 0, 128),
		usersByUsername: seedUsers(),
	}
}

// New returns an empty store with no seeded users, for tests that manage
// their own accounts.
func New() *Store {
	return &Store{
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func (s *Store) RecordSale(_ context.Context, sale domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale)
	return nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 || limit > len(s.sales) {
		limit = len(s.sales)
	}
	// Newest first.
	out := make([]domain.Sale, 0, limit)
	for i := len(s.sales) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.sales[i])
	}
	return out, nil
}

func (s *Store) RecordAudit(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog = append(s.auditLog, entry)
	return nil
}

func (s *Store) ListAudit(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 || limit > len(s.auditLog) {
		limit = len(s.auditLog)
	}
	out := make([]domain.AuditEntry, 0, limit)
	for i := len(s.auditLog) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.auditLog[i])
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return journal.ErrAlreadyExists
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	return users, nil
}

// SetUserActive toggles an account; tests use this to simulate operators
// deactivated outside this process.
func (s *Store) SetUserActive(username string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, exists := s.usersByUsername[username]; exists {
		user.Active = active
		s.usersByUsername[username] = user
	}
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return journal.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
