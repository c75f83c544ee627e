// Package accounts is the AccountDirectory: persistence for identity records.
package accounts

import (
	"context"
	"strings"

	"github.com/docgate/docgate/internal/server/models"
)

// Repository stores accounts. Lookups that find nothing return
// common.ErrorNotFound; a duplicate email returns common.ErrAlreadyExists.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindAll(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error)
	Insert(ctx context.Context, account *models.Account) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) (*models.Account, error)
	DeleteByID(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role models.Role) (int, error)
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
