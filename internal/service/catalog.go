package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dog-catalog/internal/domain"
	"dog-catalog/pkg/utils"
)

type listingStore interface {
	List(ctx context.Context, breed string) ([]domain.Listing, error)
	FindByID(ctx context.Context, id string) (*domain.Listing, error)
	Create(ctx context.Context, l *domain.Listing) error
	Update(ctx context.Context, l *domain.Listing) error
	Delete(ctx context.Context, id string) error
}

// CatalogService validates client bodies and applies them to the listing
// store. Authorization is enforced by the transport layer.
type CatalogService struct {
	store listingStore
	log   *zap.Logger
	newID func() string
}

func NewCatalogService(store listingStore, l *zap.Logger) *CatalogService {
	return &CatalogService{store: store, log: l.Named("catalog"), newID: utils.NewID}
}

func (s *CatalogService) List(ctx context.Context, breed string) ([]domain.Listing, error) {
	items, err := s.store.List(ctx, breed)
	if err != nil {
		return nil, fmt.Errorf("catalog.List: %w", err)
	}
	return items, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	l, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("catalog.Get: %w", err)
	}
	return l, nil
}

func (s *CatalogService) Create(ctx context.Context, in domain.CreateListing) (*domain.Listing, error) {
	l, err := in.Listing()
	if err != nil {
		return nil, err
	}
	l.ID = s.newID()
	if err := s.store.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("catalog.Create: %w", err)
	}
	s.log.Info("listing created", zap.String("id", l.ID), zap.String("breed", l.Breed))
	return l, nil
}

// Update merges in onto the stored listing. There is no version check:
// concurrent updates to one listing resolve last-writer-wins.
func (s *CatalogService) Update(ctx context.Context, id string, in domain.UpdateListing) (*domain.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.Apply(l); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("catalog.Update: %w", err)
	}
	s.log.Info("listing updated", zap.String("id", l.ID))
	// 回读，返回存储层维护的 updated_at
	return s.Get(ctx, id)
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrNotFound
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("catalog.Delete: %w", err)
	}
	s.log.Info("listing deleted", zap.String("id", id))
	return nil
}
