// Package services implements the registration lifecycle and the document
// gateway on top of the repositories and the blob store.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/docgate/docgate/internal/common"
	"github.com/docgate/docgate/internal/dbx"
	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/server/auth"
	"github.com/docgate/docgate/internal/server/config"
	"github.com/docgate/docgate/internal/server/models"
	"github.com/docgate/docgate/internal/server/repositories/accounts"
	"github.com/docgate/docgate/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

const (
	MinPasswordLength            = 6
	MaxPasswordBytes             = 72
	MinRegistrationDetailsLength = 10

	seededAdminDetails = "seeded administrator"
)

// LoginResult is a successful login: the access token and the account it
// was issued for.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *models.Account
}

type AccountService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	codec                       *auth.TokenCodec
	accessTokenValidityDuration time.Duration
	defaultAdminEmail           string
	validate                    *validator.Validate
	logger                      logging.Logger
	now                         func() time.Time
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.TokenCodec, cfg *config.Config, logger logging.Logger) *AccountService {
	return &AccountService{
		db:                          db,
		repomanager:                 m,
		codec:                       codec,
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		defaultAdminEmail:           accounts.NormalizeEmail(cfg.DefaultAdminEmail),
		validate:                    validator.New(),
		logger:                      logger.With("module", "accounts"),
		now:                         time.Now,
	}
}

func (s *AccountService) validateCredentials(email, password string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return common.NewError(common.ErrorInvalidInput, "a valid email address is required")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return common.NewError(common.ErrorInvalidInput, "password must be at least 6 characters")
	}
	if len(password) > MaxPasswordBytes {
		return common.NewError(common.ErrorInvalidInput, "password must be at most 72 bytes")
	}
	return nil
}

// Register creates a pending user account. The public path never grants the
// admin role.
func (s *AccountService) Register(ctx context.Context, email, password, details string) (*models.Account, error) {
	email = accounts.NormalizeEmail(email)
	if err := s.validateCredentials(email, password); err != nil {
		return nil, err
	}

	details = strings.TrimSpace(details)
	if utf8.RuneCountInString(details) < MinRegistrationDetailsLength {
		return nil, common.NewError(common.ErrorInvalidInput, "registration details must be at least 10 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.Internal(err)
	}

	account, err := s.repomanager.Accounts(s.db).Insert(ctx, &models.Account{
		Email:               email,
		PasswordHash:        hash,
		Role:                models.RoleUser,
		Status:              models.StatusPending,
		RegistrationDetails: details,
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.NewError(common.ErrorConflict, "email already registered")
		}
		s.logger.Error(ctx, "register failed", "email", email, "error", err)
		return nil, common.Internal(err)
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID)
	return account, nil
}

// SeedAdmin creates an approved administrator, or promotes and re-approves
// the account already holding email and resets its password. It is only
// reachable from trusted bootstrap code.
func (s *AccountService) SeedAdmin(ctx context.Context, email, password string) (*models.Account, error) {
	email = accounts.NormalizeEmail(email)
	if err := s.validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.Internal(err)
	}

	account, err := dbx.InTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Account, error) {
		repo := s.repomanager.Accounts(tx)

		existing, err := repo.FindByEmail(ctx, email)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return repo.Insert(ctx, &models.Account{
				Email:               email,
				PasswordHash:        hash,
				Role:                models.RoleAdmin,
				Status:              models.StatusApproved,
				RegistrationDetails: seededAdminDetails,
			})
		case err != nil:
			return nil, err
		}

		existing.PasswordHash = hash
		existing.Role = models.RoleAdmin
		existing.Status = models.StatusApproved
		existing.RejectionReason = nil
		return repo.Save(ctx, existing)
	})
	if err != nil {
		s.logger.Error(ctx, "seed admin failed", "email", email, "error", err)
		return nil, common.Internal(err)
	}

	s.logger.Info(ctx, "administrator seeded", "account_id", account.ID, "email", email)
	return account, nil
}

func (s *AccountService) find(ctx context.Context, repo accounts.Repository, id string) (*models.Account, error) {
	account, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, "account not found")
		}
		return nil, common.Internal(err)
	}
	return account, nil
}

// Approve moves a pending or rejected account to approved.
func (s *AccountService) Approve(ctx context.Context, id string) (*models.Account, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := s.find(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if account.Status == models.StatusApproved {
		return nil, common.NewError(common.ErrorConflict, "account already approved")
	}

	account.Status = models.StatusApproved
	account.RejectionReason = nil

	account, err = repo.Save(ctx, account)
	if err != nil {
		return nil, common.Internal(err)
	}

	s.logger.Info(ctx, "account approved", "account_id", account.ID)
	return account, nil
}

// Reject moves a pending or approved account to rejected. A blank reason
// leaves the reason unset.
func (s *AccountService) Reject(ctx context.Context, id, reason string) (*models.Account, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := s.find(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if account.Role == models.RoleAdmin {
		return nil, common.NewError(common.ErrorForbidden, "administrator accounts cannot be rejected")
	}
	if account.Status == models.StatusRejected {
		return nil, common.NewError(common.ErrorConflict, "account already rejected")
	}

	account.Status = models.StatusRejected
	account.RejectionReason = nil
	if reason = strings.TrimSpace(reason); reason != "" {
		account.RejectionReason = &reason
	}

	account, err = repo.Save(ctx, account)
	if err != nil {
		return nil, common.Internal(err)
	}

	s.logger.Info(ctx, "account rejected", "account_id", account.ID)
	return account, nil
}

// Login checks the password first and only then the registration status, so
// status is never disclosed to someone without the password.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	invalid := common.NewError(common.ErrorUnauthorized, "invalid credentials")

	account, err := s.repomanager.Accounts(s.db).FindByEmail(ctx, accounts.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.CheckPasswordAgainstDummy(password)
			return nil, invalid
		}
		s.logger.Error(ctx, "login lookup failed", "error", err)
		return nil, common.Internal(err)
	}

	if !auth.CheckPassword(account.PasswordHash, password) {
		return nil, invalid
	}

	switch account.Status {
	case models.StatusPending:
		return nil, common.NewError(common.ErrorForbidden, "account pending admin approval")
	case models.StatusRejected:
		msg := "account registration was rejected"
		if account.RejectionReason != nil {
			msg = "account registration was rejected: " + *account.RejectionReason
		}
		return nil, common.NewError(common.ErrorForbidden, msg)
	}

	expiresAt := s.now().Add(s.accessTokenValidityDuration)
	token, err := s.codec.Issue(models.Identity{
		SubjectID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	}, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.Internal(err)
	}

	s.logger.Info(ctx, "login succeeded", "account_id", account.ID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.find(ctx, s.repomanager.Accounts(s.db), id)
}

func (s *AccountService) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	list, err := s.repomanager.Accounts(s.db).FindAll(ctx, filter)
	if err != nil {
		return nil, common.Internal(err)
	}
	return list, nil
}

// DeleteAccount removes account id on behalf of actor. Self-deletion, the
// configured default administrator and the last remaining administrator
// are refused.
func (s *AccountService) DeleteAccount(ctx context.Context, actor models.Identity, id string) error {
	if actor.SubjectID == id {
		return common.NewError(common.ErrorForbidden, "you cannot delete your own account")
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := s.find(ctx, repo, id)
		if err != nil {
			return err
		}
		if s.defaultAdminEmail != "" && account.Email == s.defaultAdminEmail {
			return common.NewError(common.ErrorForbidden, "the default administrator cannot be deleted")
		}
		if account.Role == models.RoleAdmin {
			admins, err := repo.CountByRole(ctx, models.RoleAdmin)
			if err != nil {
				return common.Internal(err)
			}
			if admins <= 1 {
				return common.NewError(common.ErrorForbidden, "the last administrator cannot be deleted")
			}
		}

		if err := repo.DeleteByID(ctx, id); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NewError(common.ErrorNotFound, "account not found")
			}
			return common.Internal(err)
		}
		return nil
	})
	if err != nil {
		var typed *common.Error
		if !errors.As(err, &typed) && !errors.Is(err, common.ErrorInternal) {
			err = common.Internal(err)
		}
		return err
	}

	s.logger.Info(ctx, "account deleted", "account_id", id, "actor_id", actor.SubjectID)
	return nil
}
