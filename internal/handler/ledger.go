// Package handler exposes the miner over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/SignalMiner/internal/auth"
	"github.com/jmerrifield20/SignalMiner/internal/rewards"
	"github.com/jmerrifield20/SignalMiner/internal/service"
	"go.uber.org/zap"
)

const heartbeatInterval = 15 * time.Second

// LedgerHandler serves the ledger state, its change stream and the mining
// session controls.
type LedgerHandler struct {
	svc    *service.Service
	tokens *auth.TokenIssuer // nil = mutating routes are open
	logger *zap.Logger
}

// NewLedgerHandler creates a LedgerHandler. tokens may be nil to disable
// bearer auth.
func NewLedgerHandler(svc *service.Service, tokens *auth.TokenIssuer, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/events", h.Events)
		l.POST("/settle", auth.RequireToken(h.tokens), h.Settle)
	}
	rg.POST("/session/start", auth.RequireToken(h.tokens), h.StartSession)
}

// Overview handles GET /ledger. The state is settled first so the balance
// includes accrual up to now.
func (h *LedgerHandler) Overview(c *gin.Context) {
	h.svc.Settle()
	c.JSON(http.StatusOK, h.svc.Overview())
}

// Settle handles POST /ledger/settle.
func (h *LedgerHandler) Settle(c *gin.Context) {
	earned := h.svc.Settle()
	c.JSON(http.StatusOK, gin.H{
		"earned": earned,
		"ledger": h.svc.Overview(),
	})
}

// StartSession handles POST /session/start.
func (h *LedgerHandler) StartSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.StartMining())
}

// Events handles GET /ledger/events as a server-sent event stream. The
// current overview is sent first, then one "ledger" event per change. A slow
// client only ever receives the latest state.
func (h *LedgerHandler) Events(c *gin.Context) {
	latest := make(chan rewards.State, 1)
	unsubscribe := h.svc.Ledger().Subscribe(func(s rewards.State) {
		// Listeners run one at a time, so replacing the pending state is race free.
		select {
		case <-latest:
		default:
		}
		latest <- s
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ledger", h.svc.Overview())
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-latest:
			c.SSEvent("ledger", h.svc.OverviewOf(s))
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
		}
		c.Writer.Flush()
	}
}
