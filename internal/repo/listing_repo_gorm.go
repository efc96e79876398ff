package repo

import (
	"context"

	"dog-catalog/internal/core/database"
	"dog-catalog/internal/domain"
)

type ListingRepo struct{ m *database.Manager }

func NewListingRepo(m *database.Manager) *ListingRepo { return &ListingRepo{m: m} }

// List returns listings newest first, optionally restricted to one breed.
func (r *ListingRepo) List(ctx context.Context, breed string) ([]domain.Listing, error) {
	db, cancel, err := read(ctx, r.m)
	if err != nil {
		return nil, err
	}
	defer cancel()

	q := db.Model(&domain.Listing{})
	if !domain.IsAllBreeds(breed) {
		q = q.Where("breed = ?", breed)
	}
	items := make([]domain.Listing, 0)
	if err := q.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, mapErr("list listings", err)
	}
	return items, nil
}

func (r *ListingRepo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	db, cancel, err := read(ctx, r.m)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var l domain.Listing
	if err := db.First(&l, "id = ?", id).Error; err != nil {
		return nil, mapErr("find listing", err)
	}
	return &l, nil
}

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	db, cancel, err := write(ctx, r.m)
	if err != nil {
		return err
	}
	defer cancel()
	return mapErr("create listing", db.Create(l).Error)
}

// Update overwrites every mutable column of l; concurrent updates resolve
// last-writer-wins. A row deleted in the meantime is not recreated.
func (r *ListingRepo) Update(ctx context.Context, l *domain.Listing) error {
	db, cancel, err := write(ctx, r.m)
	if err != nil {
		return err
	}
	defer cancel()

	res := db.Model(l).Select("*").Omit("id", "created_at").Updates(l)
	if res.Error != nil {
		return mapErr("update listing", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ListingRepo) Delete(ctx context.Context, id string) error {
	db, cancel, err := write(ctx, r.m)
	if err != nil {
		return err
	}
	defer cancel()

	res := db.Where("id = ?", id).Delete(&domain.Listing{})
	if res.Error != nil {
		return mapErr("delete listing", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
