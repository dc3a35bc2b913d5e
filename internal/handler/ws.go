package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/efreitasn/tradefeed/internal/bus"
	"github.com/efreitasn/tradefeed/internal/message"
	"github.com/efreitasn/tradefeed/internal/service"
)

const (
	maxFrameSize   = 64 * 1024
	sendBufferSize = 256
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
)

// Frame actions accepted from websocket clients.
const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
	actionTrade       = "trade"
)

// clientFrame is one JSON frame sent by a websocket client.
type clientFrame struct {
	Action      string              `json:"action"`
	Destination string              `json:"destination,omitempty"`
	Trade       *submitTradeRequest `json:"trade,omitempty"`
}

// Gateway upgrades GET /ws to a websocket session attached to the hub.
type Gateway struct {
	hub        *bus.Memory
	portfolios *service.PortfolioService
	trades     *service.TradeService
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewGateway creates a new Gateway.
func NewGateway(hub *bus.Memory, portfolios *service.PortfolioService, trades *service.TradeService, logger *slog.Logger) *Gateway {
	return &Gateway{
		hub:        hub,
		portfolios: portfolios,
		trades:     trades,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws?user=. Unknown identities are refused before the
// upgrade.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		WriteError(w, http.StatusUnauthorized, "unauthenticated", "user query parameter is required")
		return
	}
	if _, err := g.portfolios.Positions(user); err != nil {
		writeDomainError(w, err)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		g.logger.Debug("websocket upgrade failed", "user", user, "error", err)
		return
	}

	s := newSession(conn, user)
	g.hub.Register(s)
	g.logger.Info("session opened", "session", s.id, "user", user)

	go s.writePump()
	g.readPump(r.Context(), s)

	g.hub.Unregister(s)
	s.close()
	g.logger.Info("session closed", "session", s.id, "user", user)
}

// readPump processes client frames until the connection fails.
func (g *Gateway) readPump(ctx context.Context, s *session) {
	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.Send(message.NewError("Invalid JSON"))
			continue
		}
		g.handleFrame(ctx, s, frame)
	}
}

func (g *Gateway) handleFrame(ctx context.Context, s *session, frame clientFrame) {
	switch frame.Action {
	case actionSubscribe:
		g.subscribe(s, frame.Destination)
	case actionUnsubscribe:
		g.hub.Unsubscribe(s, frame.Destination)
	case actionTrade:
		if frame.Trade == nil {
			s.Send(message.NewError("trade frame is missing the trade"))
			return
		}
		// Outcomes arrive on the errors and position-updates channels.
		if _, err := g.trades.Submit(ctx, frame.Trade.toService(s.user)); err != nil {
			s.Send(message.NewError(err.Error()))
		}
	default:
		s.Send(message.NewError("unknown action " + frame.Action))
	}
}

func (g *Gateway) subscribe(s *session, destination string) {
	switch {
	case destination == message.ChannelPositions:
		positions, err := g.portfolios.Positions(s.user)
		if err != nil {
			s.Send(message.NewError(err.Error()))
			return
		}
		msg, err := message.NewPositions(positions)
		if err != nil {
			g.logger.Error("positions snapshot not encodable", "user", s.user, "error", err)
			return
		}
		s.Send(msg)
	case message.IsQuoteTopic(destination):
		g.hub.Subscribe(s, destination)
	default:
		s.Send(message.NewError("unknown destination " + destination))
	}
}

// session is one websocket connection. It implements bus.Session.
type session struct {
	id   string
	user string
	conn *websocket.Conn

	send      chan message.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, user string) *session {
	return &session{
		id:   uuid.New().String(),
		user: user,
		conn: conn,
		send: make(chan message.Message, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (s *session) ID() string   { return s.id }
func (s *session) User() string { return s.user }

// Send queues msg for the client. A full buffer drops the message.
func (s *session) Send(msg message.Message) {
	select {
	case <-s.done:
	case s.send <- msg:
	default:
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// writePump is the only writer on conn.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					s.close()
				}
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}

var _ bus.Session = (*session)(nil)
