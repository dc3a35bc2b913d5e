package handler

import (
	"net/http"

	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/efreitasn/tradefeed/internal/service"
)

// TradeHandler serves POST /trades.
type TradeHandler struct {
	trades *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(trades *service.TradeService) *TradeHandler {
	return &TradeHandler{trades: trades}
}

// submitTradeRequest is the JSON body for POST /trades and for trade
// frames on the websocket.
type submitTradeRequest struct {
	Ticker string `json:"ticker"`
	Shares int64  `json:"shares"`
	Action string `json:"action"`
}

func (req submitTradeRequest) toService(user string) service.SubmitTradeRequest {
	return service.SubmitTradeRequest{
		User:   user,
		Ticker: req.Ticker,
		Shares: req.Shares,
		Action: domain.TradeAction(req.Action),
	}
}

// submitTradeResponse is the 202 body for POST /trades.
type submitTradeResponse struct {
	Status  string `json:"status"`
	TradeID string `json:"trade_id"`
}

// Submit handles POST /trades. The outcome is delivered on the user's
// channels; the response only acknowledges receipt.
func (h *TradeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req submitTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	trade, err := h.trades.Submit(r.Context(), req.toService(user))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, submitTradeResponse{
		Status:  "accepted",
		TradeID: trade.TradeID,
	})
}
