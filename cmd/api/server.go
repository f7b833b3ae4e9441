package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"buyshop/auth"
	"buyshop/product"
	"buyshop/rating"
	"buyshop/trade"
)

// Service seams the handlers depend on. Tests substitute stubs.
type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, auth.Role, error)
}

type listingService interface {
	Create(ctx context.Context, params product.CreateParams) (product.Listing, error)
	GetByID(ctx context.Context, id string) (product.Listing, error)
	ListAvailable(ctx context.Context, limit int) ([]product.Listing, error)
}

type bidLedger interface {
	SubmitBid(ctx context.Context, params trade.SubmitBidParams) (trade.Bid, error)
}

type bidAcceptance interface {
	Accept(ctx context.Context, bidID, actingUserID string) (trade.AcceptReceipt, error)
}

type bidLister interface {
	ListForProduct(ctx context.Context, productID, sellerID string) ([]trade.BidSummary, error)
}

type ratingService interface {
	Create(ctx context.Context, params rating.CreateParams) (rating.Record, error)
	ListForSeller(ctx context.Context, sellerID string) ([]rating.Record, error)
}

// Server wires the HTTP surface.
type Server struct {
	log      *zap.Logger
	validate *validator.Validate

	authService    authService
	listingService listingService
	ledger         bidLedger
	acceptance     bidAcceptance
	bids           bidLister
	ratings        ratingService
}

// routes assembles the chi router.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/products", s.handleListProducts)
		r.Get("/products/{id}", s.handleGetProduct)
		r.Get("/sellers/{id}/ratings", s.handleListRatings)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/products", s.handleCreateProduct)
			r.Post("/products/{id}/bids", s.handleSubmitBid)
			r.Get("/products/{id}/bids", s.handleListBids)
			r.Post("/bids/{id}/accept", s.handleAcceptBid)
			r.Post("/sellers/{id}/ratings", s.handleCreateRating)
		})
	})

	return r
}
