// Package account manages customer, staff and administrator accounts.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
	"github.com/jwalitptl/salon-api/pkg/logger"
	"github.com/jwalitptl/salon-api/pkg/security"
)

type AccountServicer interface {
	CreateAccount(ctx context.Context, p model.Principal, req *model.CreateAccountRequest) (*model.Account, error)
	GetAccount(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Account, error)
	UpdateAccount(ctx context.Context, p model.Principal, id uuid.UUID, req *model.UpdateAccountRequest) (*model.Account, error)
	DeactivateAccount(ctx context.Context, p model.Principal, id uuid.UUID) error
	ListAccounts(ctx context.Context, p model.Principal, filters *model.AccountFilters) ([]*model.Account, error)
	UpdateProfile(ctx context.Context, p model.Principal, req *model.UpdateProfileRequest) (*model.Account, error)
}

type Service struct {
	accounts repository.AccountRepository
	hasher   security.PasswordHasher
	log      *logger.Logger
}

func NewService(accounts repository.AccountRepository, hasher security.PasswordHasher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		log:      log,
	}
}

func (s *Service) CreateAccount(ctx context.Context, p model.Principal, req *model.CreateAccountRequest) (*model.Account, error) {
	if !p.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if !req.Role.Valid() {
		return nil, model.NewValidationError("role", fmt.Sprintf("unknown role %q", req.Role))
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.NewValidationError("name", "is required")
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		Email:        req.Email,
		Name:         name,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         req.Role,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("account created", "account_id", account.ID, "role", account.Role, "by", p.AccountID)
	return account, nil
}

// GetAccount returns any account to an administrator and the caller's own
// account to everyone else.
func (s *Service) GetAccount(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Account, error) {
	if !p.IsAdmin() && p.AccountID != id {
		return nil, model.ErrForbidden
	}
	return s.get(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context, p model.Principal, filters *model.AccountFilters) ([]*model.Account, error) {
	if !p.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if filters != nil && filters.Role != "" && !filters.Role.Valid() {
		return nil, model.NewValidationError("role", fmt.Sprintf("unknown role %q", filters.Role))
	}
	return s.accounts.List(ctx, filters)
}

// UpdateAccount applies an administrator's changes. Administrators cannot
// demote or deactivate themselves.
func (s *Service) UpdateAccount(ctx context.Context, p model.Principal, id uuid.UUID, req *model.UpdateAccountRequest) (*model.Account, error) {
	if !p.IsAdmin() {
		return nil, model.ErrForbidden
	}
	account, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if id == p.AccountID {
		if req.Role != nil && *req.Role != model.RoleAdmin {
			return nil, model.NewValidationError("role", "cannot change your own role")
		}
		if req.Active != nil && !*req.Active {
			return nil, model.NewValidationError("active", "cannot deactivate your own account")
		}
	}

	if req.Email != nil {
		account.Email = *req.Email
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, model.NewValidationError("role", fmt.Sprintf("unknown role %q", *req.Role))
		}
		account.Role = *req.Role
	}
	if req.Active != nil {
		account.Active = *req.Active
	}
	if err := s.applyProfile(account, req.Name, req.Phone, req.Password); err != nil {
		return nil, err
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	s.log.Info("account updated", "account_id", account.ID, "by", p.AccountID)
	return account, nil
}

// DeactivateAccount blocks future logins. Existing bookings are kept.
func (s *Service) DeactivateAccount(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if !p.IsAdmin() {
		return model.ErrForbidden
	}
	if id == p.AccountID {
		return model.NewValidationError("id", "cannot deactivate your own account")
	}
	account, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !account.Active {
		return nil
	}
	account.Active = false
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}
	s.log.Info("account deactivated", "account_id", id, "by", p.AccountID)
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, p model.Principal, req *model.UpdateProfileRequest) (*model.Account, error) {
	account, err := s.get(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.applyProfile(account, req.Name, req.Phone, req.Password); err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// EnsureAdmin creates an active administrator with email unless an account
// with that e-mail already exists. It reports whether one was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	_, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	account := &model.Account{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return false, err
	}
	s.log.Info("bootstrap administrator created", "account_id", account.ID)
	return true, nil
}

func (s *Service) applyProfile(account *model.Account, name, phone, password *string) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return model.NewValidationError("name", "is required")
		}
		account.Name = trimmed
	}
	if phone != nil {
		if *phone == "" {
			account.Phone = nil
		} else {
			account.Phone = phone
		}
	}
	if password != nil {
		hash, err := s.hasher.Hash(*password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		account.PasswordHash = hash
	}
	return nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("account: %w", model.ErrNotFound)
	}
	return account, err
}
