package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/docgate/docgate/internal/common"
	"github.com/docgate/docgate/internal/dbx"
	"github.com/docgate/docgate/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const accountColumns = `id, email, password_hash, role, registration_status, registration_details, rejection_reason, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a      models.Account
		role   string
		status string
		reason sql.NullString
	)

	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &status, &a.RegistrationDetails, &reason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if a.Role, err = models.ParseRole(role); err != nil {
		return nil, err
	}
	if a.Status, err = models.ParseRegistrationStatus(status); err != nil {
		return nil, err
	}
	if reason.Valid {
		a.RejectionReason = &reason.String
	}

	return &a, nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE lower(email) = $1
		 `

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE id = $1
		 `

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *PostgresRepository) FindAll(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE ($1::text IS NULL OR registration_status = $1)
		   AND ($2::text IS NULL OR role = $2)
		 ORDER BY created_at
		 `

	var status, role any
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	if filter.Role != nil {
		role = string(*filter.Role)
	}

	rows, err := r.db.QueryContext(ctx, query, status, role)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Insert stores a new account, assigning an id when it has none.
func (r *PostgresRepository) Insert(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.Email = NormalizeEmail(account.Email)

	query :=
		`INSERT INTO accounts (id, email, password_hash, role, registration_status, registration_details, rejection_reason)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Email, account.PasswordHash, string(account.Role), string(account.Status),
		account.RegistrationDetails, account.RejectionReason,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	return account, nil
}

// Save overwrites every mutable column of an existing account.
func (r *PostgresRepository) Save(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.Email = NormalizeEmail(account.Email)

	query :=
		`UPDATE accounts
		 SET email = $2, password_hash = $3, role = $4, registration_status = $5,
		     registration_details = $6, rejection_reason = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Email, account.PasswordHash, string(account.Role), string(account.Status),
		account.RegistrationDetails, account.RejectionReason,
	).Scan(&account.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	return account, nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM accounts WHERE role = $1`, string(role)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
