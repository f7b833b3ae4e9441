package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"buyshop/auth"
	"buyshop/product"
	"buyshop/rating"
	"buyshop/trade"
)

// pathID extracts and validates a UUID route parameter. Malformed ids never
// reach the database.
func pathID(r *http.Request, key string) (string, bool) {
	id := chi.URLParam(r, key)
	if uuid.Validate(id) != nil {
		return "", false
	}
	return id, true
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=buyer seller"`
}

type userResponse struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	Rating   float64 `json:"rating"`
}

func toUserResponse(u auth.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
		Rating:   u.Rating,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.authService.Register(r.Context(), auth.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     auth.Role(req.Role),
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.authService.Login(r.Context(), auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

type createProductRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Price       string `json:"price" validate:"required"`
	Condition   string `json:"condition" validate:"omitempty,oneof=new fairly_used old"`
}

type productResponse struct {
	ID            string  `json:"id"`
	SellerID      string  `json:"seller_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         string  `json:"price"`
	Condition     string  `json:"condition"`
	IsAvailable   bool    `json:"is_available"`
	IsBiddingOver bool    `json:"is_bidding_over"`
	AuctionState  string  `json:"auction_state"`
	BidStartTime  *string `json:"bid_start_time,omitempty"`
	BidDeadline   *string `json:"bid_deadline,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toProductResponse(l product.Listing) productResponse {
	resp := productResponse{
		ID:            l.ID,
		SellerID:      l.SellerID,
		Name:          l.Name,
		Description:   l.Description,
		Price:         l.Price.StringFixed(2),
		Condition:     string(l.Condition),
		IsAvailable:   l.IsAvailable,
		IsBiddingOver: l.IsBiddingOver,
		AuctionState:  string(trade.StateOf(l.BidStartTime, l.IsBiddingOver, l.HasAcceptedBid)),
		CreatedAt:     l.CreatedAt.Format(time.RFC3339),
	}
	if l.BidStartTime != nil {
		ts := l.BidStartTime.Format(time.RFC3339)
		resp.BidStartTime = &ts
		deadline := trade.Deadline(*l.BidStartTime).Format(time.RFC3339)
		resp.BidDeadline = &deadline
	}
	return resp
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok || p.Role != auth.RoleSeller {
		writeError(w, http.StatusForbidden, "only sellers can list products")
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "price must be a decimal number")
		return
	}

	listing, err := s.listingService.Create(r.Context(), product.CreateParams{
		SellerID:    p.UserID,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Condition:   product.Condition(req.Condition),
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(listing))
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	listings, err := s.listingService.ListAvailable(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := make([]productResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, toProductResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	listing, err := s.listingService.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(listing))
}

type submitBidRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type bidResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Amount     string `json:"amount"`
	IsAccepted bool   `json:"is_accepted"`
	CreatedAt  string `json:"created_at"`
}

func (s *Server) handleSubmitBid(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}
	if p.Role != auth.RoleBuyer {
		writeError(w, http.StatusForbidden, trade.ErrNotBuyer.Error())
		return
	}

	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req submitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal number")
		return
	}

	bid, err := s.ledger.SubmitBid(r.Context(), trade.SubmitBidParams{
		ProductID: productID,
		BidderID:  p.UserID,
		Amount:    amount,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bidResponse{
		ID:         bid.ID,
		ProductID:  bid.ProductID,
		Amount:     bid.Amount.StringFixed(2),
		IsAccepted: bid.IsAccepted,
		CreatedAt:  bid.CreatedAt.Format(time.RFC3339),
	})
}

type bidSummaryResponse struct {
	ID         string `json:"id"`
	BidderID   string `json:"bidder_id"`
	BidderName string `json:"bidder_name"`
	Amount     string `json:"amount"`
	IsAccepted bool   `json:"is_accepted"`
	CreatedAt  string `json:"created_at"`
}

func (s *Server) handleListBids(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	bids, err := s.bids.ListForProduct(r.Context(), productID, p.UserID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := make([]bidSummaryResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, bidSummaryResponse{
			ID:         b.ID,
			BidderID:   b.BidderID,
			BidderName: b.BidderName,
			Amount:     b.Amount.StringFixed(2),
			IsAccepted: b.IsAccepted,
			CreatedAt:  b.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type acceptBidResponse struct {
	Message       string `json:"message"`
	BidID         string `json:"bid_id"`
	ProductName   string `json:"product_name"`
	Amount        string `json:"amount"`
	RejectedCount int    `json:"rejected_count"`
}

func (s *Server) handleAcceptBid(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	bidID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid bid id")
		return
	}

	receipt, err := s.acceptance.Accept(r.Context(), bidID, p.UserID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, acceptBidResponse{
		Message:       "bid accepted; notifications queued",
		BidID:         receipt.Bid.ID,
		ProductName:   receipt.ProductName,
		Amount:        receipt.Bid.Amount.StringFixed(2),
		RejectedCount: receipt.RejectedCount,
	})
}

type createRatingRequest struct {
	Rating int     `json:"rating" validate:"required,min=1,max=5"`
	Review *string `json:"review"`
}

type ratingResponse struct {
	ID        string  `json:"id"`
	BuyerID   string  `json:"buyer_id"`
	SellerID  string  `json:"seller_id"`
	Rating    int     `json:"rating"`
	Review    *string `json:"review,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toRatingResponse(rec rating.Record) ratingResponse {
	return ratingResponse{
		ID:        rec.ID,
		BuyerID:   rec.BuyerID,
		SellerID:  rec.SellerID,
		Rating:    rec.Rating,
		Review:    rec.Review,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok || p.Role != auth.RoleBuyer {
		writeError(w, http.StatusForbidden, "only buyers can rate sellers")
		return
	}

	sellerID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid seller id")
		return
	}

	var req createRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.ratings.Create(r.Context(), rating.CreateParams{
		BuyerID:  p.UserID,
		SellerID: sellerID,
		Rating:   req.Rating,
		Review:   req.Review,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRatingResponse(rec))
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid seller id")
		return
	}

	records, err := s.ratings.ListForSeller(r.Context(), sellerID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := make([]ratingResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRatingResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}
