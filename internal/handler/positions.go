package handler

import (
	"net/http"

	"github.com/efreitasn/tradefeed/internal/message"
	"github.com/efreitasn/tradefeed/internal/service"
)

// PositionsHandler serves GET /positions.
type PositionsHandler struct {
	portfolios *service.PortfolioService
}

// NewPositionsHandler creates a new PositionsHandler.
func NewPositionsHandler(portfolios *service.PortfolioService) *PositionsHandler {
	return &PositionsHandler{portfolios: portfolios}
}

// List handles GET /positions for the caller named in X-User.
func (h *PositionsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	positions, err := h.portfolios.Positions(user)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, message.NewPositionPayloads(positions))
}
