package repomanager

import (
	"context"
	"database/sql"

	"github.com/docgate/docgate/internal/dbx"
	"github.com/docgate/docgate/internal/server/repositories/accounts"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code runs
// against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
}
