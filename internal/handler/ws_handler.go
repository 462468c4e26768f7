package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/certiq/certiq-backend/internal/middleware"
	"github.com/certiq/certiq-backend/internal/service"
	ws "github.com/certiq/certiq-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the authoritative session clock to candidates.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamClockStream godoc
// WS /ws/v1/candidate/exams/:exam_id/clock
// Upgrades to WebSocket and ticks the remaining session seconds once per
// second until the deadline passes. The clock is server-side; clients
// must not trust their local time.
func (h *WSHandler) ExamClockStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	deadline, err := h.sessionService.Deadline(c.Request.Context(), examID, claims.AccountID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no active session for this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("account_id", claims.AccountID.String()).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Time("deadline", deadline).Msg("Candidate connected to clock stream")

	// Reader goroutine: answers pings and unblocks on close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			// Re-resolve every tick: SubmitExam rewrites the cached
			// deadline to the submit instant, and the stream must flip
			// to ended when that lands. On a resolve failure the last
			// known deadline keeps the clock running.
			if d, err := h.sessionService.Deadline(c.Request.Context(), examID, claims.AccountID); err == nil {
				deadline = d
			}
			remaining := time.Until(deadline)
			if now.After(deadline) || remaining <= 0 {
				ws.WriteTyped(conn, ws.EndedResponse{Event: ws.EventEnded})
				wsLog.Info().Msg("Session deadline reached, closing clock stream")
				return
			}
			if err := ws.WriteTyped(conn, ws.TickResponse{
				Event:            ws.EventTick,
				RemainingSeconds: int64(remaining.Seconds()),
			}); err != nil {
				wsLog.Debug().Err(err).Msg("Tick write failed, closing")
				return
			}
		}
	}
}
