// Package journal keeps a local record of committed sales and operator
// actions. The remote sale store is the system of record; the journal exists
// so a terminal can answer "what happened here today" without a round trip,
// and it doubles as the credential store for operator auth.
package journal

import (
	"context"
	"errors"

	"lanepos/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type Store interface {
	RecordSale(ctx context.Context, sale domain.Sale) error
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	RecordAudit(ctx context.Context, entry domain.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
