// Package message defines the payloads carried by the message bus.
package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Content types carried on a Message.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// User-scoped channels.
const (
	ChannelErrors          = "errors"
	ChannelPositionUpdates = "position-updates"
	ChannelPositions       = "/positions"
)

// QuoteTopicPrefix prefixes every per-ticker quote topic.
const QuoteTopicPrefix = "price.stock."

// QuoteTopic returns the broadcast topic for ticker.
func QuoteTopic(ticker string) string {
	return QuoteTopicPrefix + ticker
}

// IsQuoteTopic reports whether destination is a per-ticker quote topic.
func IsQuoteTopic(destination string) bool {
	return strings.HasPrefix(destination, QuoteTopicPrefix) && len(destination) > len(QuoteTopicPrefix)
}

// Message is one unit delivered over the bus. Destination is either a
// topic or, for user-scoped messages, the channel name.
type Message struct {
	ID          string          `json:"id"`
	Destination string          `json:"destination"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
}

// PositionPayload is the JSON shape of a position.
type PositionPayload struct {
	Company    string          `json:"company"`
	Ticker     string          `json:"ticker"`
	Price      decimal.Decimal `json:"price"`
	Shares     int64           `json:"shares"`
	UpdateTime int64           `json:"update_time"` // unix millis, 0 when never traded
}

// QuotePayload is the JSON shape of a quote.
type QuotePayload struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
}

// NewPositionPayload converts a domain position to its wire form.
func NewPositionPayload(p domain.Position) PositionPayload {
	var updateTime int64
	if !p.UpdatedAt.IsZero() {
		updateTime = p.UpdatedAt.UnixMilli()
	}
	return PositionPayload{
		Company:    p.Company,
		Ticker:     p.Ticker,
		Price:      p.Price,
		Shares:     p.Shares,
		UpdateTime: updateTime,
	}
}

// NewPositionPayloads converts positions, preserving order.
func NewPositionPayloads(positions []domain.Position) []PositionPayload {
	result := make([]PositionPayload, len(positions))
	for i, p := range positions {
		result[i] = NewPositionPayload(p)
	}
	return result
}

// NewQuote builds the broadcast message for q.
func NewQuote(q domain.Quote) (Message, error) {
	return newJSON(QuoteTopic(q.Ticker), QuotePayload{Ticker: q.Ticker, Price: q.Price})
}

// NewPositionUpdate builds the position-updates message for p.
func NewPositionUpdate(p domain.Position) (Message, error) {
	return newJSON(ChannelPositionUpdates, NewPositionPayload(p))
}

// NewPositions builds the reply to a /positions subscription.
func NewPositions(positions []domain.Position) (Message, error) {
	return newJSON(ChannelPositions, NewPositionPayloads(positions))
}

// NewRejection builds the errors-channel message for a rejected trade.
func NewRejection(trade domain.Trade, cause error) Message {
	text := fmt.Sprintf("Rejected trade %s: %v", trade, cause)
	return NewError(text)
}

// NewError builds a plain-text errors-channel message.
func NewError(text string) Message {
	body, _ := json.Marshal(text) // marshalling a string cannot fail
	return Message{
		ID:          uuid.New().String(),
		Destination: ChannelErrors,
		ContentType: ContentTypeText,
		Body:        body,
	}
}

// Text returns the body of a text message.
func (m Message) Text() (string, error) {
	var s string
	if err := json.Unmarshal(m.Body, &s); err != nil {
		return "", err
	}
	return s, nil
}

func newJSON(destination string, payload any) (Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", destination, err)
	}
	return Message{
		ID:          uuid.New().String(),
		Destination: destination,
		ContentType: ContentTypeJSON,
		Body:        body,
	}, nil
}
