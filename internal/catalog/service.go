package catalog

import (
	"context"
	"strings"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/clock"
)

type Service struct {
	store Store
	clock clock.Clock
	id    clock.IDGen
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: clock.Real{}, id: clock.ULIDGen{}}
}

func (s *Service) CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.InvalidArgument("title is required")
	}
	if req.TotalCopies < 1 {
		return nil, apperr.InvalidArgument("total_copies must be >= 1")
	}

	id, err := s.id.New()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	item := &Item{
		ItemID:          id,
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		Category:        req.Category,
		Publisher:       req.Publisher,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Insert(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, itemID string) (*Item, error) {
	return s.store.GetByID(ctx, itemID)
}

func (s *Service) ListItems(ctx context.Context, category string) ([]*Item, error) {
	return s.store.List(ctx, category)
}

// AdjustTotal handles bulk inventory edits. Copies currently out stay out:
// available becomes max(0, newTotal - borrowed).
func (s *Service) AdjustTotal(ctx context.Context, itemID string, newTotal int) (*Item, error) {
	if newTotal < 1 {
		return nil, apperr.InvalidArgument("total_copies must be >= 1")
	}
	return s.store.AdjustTotal(ctx, itemID, newTotal)
}

// DeleteItem refuses to delete while any borrow record is active.
func (s *Service) DeleteItem(ctx context.Context, itemID string) error {
	active, err := s.store.ActiveLoanCount(ctx, itemID)
	if err != nil {
		return err
	}
	if active > 0 {
		return apperr.ActiveLoansExist("item has active loans")
	}
	return s.store.Delete(ctx, itemID)
}
