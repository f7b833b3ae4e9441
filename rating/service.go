package rating

import "context"

// Store abstracts repository operations for the service.
type Store interface {
	Create(ctx context.Context, params CreateParams) (Record, error)
	ListForSeller(ctx context.Context, sellerID string) ([]Record, error)
}

// Service exposes business-level rating operations.
type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create records a buyer's rating of a seller.
func (s *Service) Create(ctx context.Context, params CreateParams) (Record, error) {
	return s.repo.Create(ctx, params)
}

// ListForSeller returns the ratings a seller has received.
func (s *Service) ListForSeller(ctx context.Context, sellerID string) ([]Record, error) {
	return s.repo.ListForSeller(ctx, sellerID)
}
