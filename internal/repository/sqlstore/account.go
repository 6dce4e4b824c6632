package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
)

const accountColumns = `id, email, name, phone, password_hash, role, active, created_at, updated_at`

type accountRepository struct {
	BaseRepository
}

func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	now := time.Now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now

	query := r.db.Rebind(`INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Email, account.Name, account.Phone, account.PasswordHash,
		account.Role, account.Active, account.CreatedAt, account.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return model.NewValidationError("email", "already registered")
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`)
	if err := get(ctx, r.db, &account, query, id); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`)
	if err := get(ctx, r.db, &account, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	account.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE accounts
		SET email = ?, name = ?, phone = ?, password_hash = ?, role = ?, active = ?, updated_at = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query,
		account.Email, account.Name, account.Phone, account.PasswordHash,
		account.Role, account.Active, account.UpdatedAt, account.ID,
	)
	if isUniqueViolation(err) {
		return model.NewValidationError("email", "already registered")
	}
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return expectOne(res)
}

func (r *accountRepository) List(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filters == nil {
		filters = &model.AccountFilters{}
	}
	if filters.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, filters.Role)
	}
	if filters.Active != nil {
		conds = append(conds, "active = ?")
		args = append(args, *filters.Active)
	}
	if filters.Search != "" {
		conds = append(conds, "(LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))")
		pattern := "%" + filters.Search + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	page := filters.Pagination.Normalize()
	query += ` ORDER BY created_at DESC, email ASC LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	accounts := []*model.Account{}
	if err := r.db.SelectContext(ctx, &accounts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}
