package product

import "context"

// ListingStore abstracts repository operations for the service.
type ListingStore interface {
	Create(ctx context.Context, params CreateParams) (Listing, error)
	GetByID(ctx context.Context, id string) (Listing, error)
	ListAvailable(ctx context.Context, limit int) ([]Listing, error)
}

// Service exposes business-level listing operations.
type Service struct {
	repo ListingStore
}

// NewService builds a Service using the provided repository.
func NewService(repo ListingStore) *Service {
	return &Service{repo: repo}
}

// Create lists a new item for the seller.
func (s *Service) Create(ctx context.Context, params CreateParams) (Listing, error) {
	return s.repo.Create(ctx, params)
}

// GetByID returns the listing for the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (Listing, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAvailable returns up to limit open listings.
func (s *Service) ListAvailable(ctx context.Context, limit int) ([]Listing, error) {
	return s.repo.ListAvailable(ctx, limit)
}
