package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"dog-catalog/internal/core/database"
	"dog-catalog/internal/domain"
	"dog-catalog/pkg/utils"
)

type AccountRepo struct{ m *database.Manager }

func NewAccountRepo(m *database.Manager) *AccountRepo { return &AccountRepo{m: m} }

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = utils.NewID()
	}
	if err := domain.Struct(a); err != nil {
		return err
	}
	db, cancel, err := write(ctx, r.m)
	if err != nil {
		return err
	}
	defer cancel()
	return mapErr("create account", db.Create(a).Error)
}

// FindByEmail matches the email exactly, case included, whatever the
// collation of the underlying column.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	db, cancel, err := read(ctx, r.m)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var a domain.Account
	if err := db.First(&a, "email = ?", email).Error; err != nil {
		return nil, mapErr("find account", err)
	}
	if a.Email != email {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r *AccountRepo) SetPassword(ctx context.Context, id, hash string) error {
	if hash == "" {
		return domain.NewValidationError("password_hash", "is required")
	}
	db, cancel, err := write(ctx, r.m)
	if err != nil {
		return err
	}
	defer cancel()
	res := db.Model(&domain.Account{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return mapErr("set password", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type RoleRepo struct{ m *database.Manager }

func NewRoleRepo(m *database.Manager) *RoleRepo { return &RoleRepo{m: m} }

// Find returns the binding of role to accountID, or ErrNotFound.
func (r *RoleRepo) Find(ctx context.Context, accountID string, role domain.Role) (*domain.RoleBinding, error) {
	db, cancel, err := read(ctx, r.m)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var b domain.RoleBinding
	if err := db.First(&b, "account_id = ? AND role = ?", accountID, role).Error; err != nil {
		return nil, mapErr("find role", err)
	}
	return &b, nil
}

// Grant is idempotent.
func (r *RoleRepo) Grant(ctx context.Context, accountID string, role domain.Role) error {
	if !role.Valid() {
		return domain.NewValidationError("role", "must be one of: admin, user")
	}
	db, cancel, err := write(ctx, r.m)
	if err != nil {
		return err
	}
	defer cancel()
	b := domain.RoleBinding{ID: utils.NewID(), AccountID: accountID, Role: role}
	err = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&b).Error
	return mapErr("grant role", err)
}

func (r *RoleRepo) Revoke(ctx context.Context, accountID string, role domain.Role) error {
	db, cancel, err := write(ctx, r.m)
	if err != nil {
		return err
	}
	defer cancel()
	res := db.Where("account_id = ? AND role = ?", accountID, role).Delete(&domain.RoleBinding{})
	if res.Error != nil {
		return mapErr("revoke role", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RoleRepo) ListFor(ctx context.Context, accountID string) ([]domain.RoleBinding, error) {
	db, cancel, err := read(ctx, r.m)
	if err != nil {
		return nil, err
	}
	defer cancel()
	out := make([]domain.RoleBinding, 0)
	if err := db.Where("account_id = ?", accountID).Order("role").Find(&out).Error; err != nil {
		return nil, mapErr("list roles", err)
	}
	return out, nil
}
