package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"buyshop/auth"
	"buyshop/product"
	"buyshop/rating"
	"buyshop/trade"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps domain errors onto HTTP statuses. Validation and
// authorization failures carry their message; everything unknown is a 500
// with the detail kept in the log.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trade.ErrInvalidAmount),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, rating.ErrInvalidRating),
		errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, trade.ErrNotBuyer),
		errors.Is(err, trade.ErrOwnProduct),
		errors.Is(err, trade.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, trade.ErrProductNotFound),
		errors.Is(err, trade.ErrBidNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, trade.ErrBiddingOver),
		errors.Is(err, trade.ErrAlreadyDecided),
		errors.Is(err, rating.ErrAlreadyRated),
		errors.Is(err, auth.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
