package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/SignalMiner/internal/auth"
	"github.com/jmerrifield20/SignalMiner/internal/catalog"
	"github.com/jmerrifield20/SignalMiner/internal/service"
	"go.uber.org/zap"
)

// SpendHandler serves the catalog and the spend flows.
type SpendHandler struct {
	svc    *service.Service
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewSpendHandler creates a SpendHandler. tokens may be nil to disable
// bearer auth.
func NewSpendHandler(svc *service.Service, tokens *auth.TokenIssuer, logger *zap.Logger) *SpendHandler {
	return &SpendHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the task, tier, swap, stake and boost routes.
func (h *SpendHandler) Register(rg *gin.RouterGroup) {
	guard := auth.RequireToken(h.tokens)

	rg.GET("/tasks", h.ListTasks)
	rg.POST("/tasks/:id/claim", guard, h.ClaimTask)

	rg.GET("/tiers", h.ListTiers)
	rg.POST("/tiers/:tier/purchase", guard, h.PurchaseTier)

	rg.GET("/swap/quote", h.QuoteSwap)
	rg.POST("/swap", guard, h.Swap)

	rg.GET("/stake/options", h.StakeOptions)
	rg.POST("/stake", guard, h.Stake)
	rg.DELETE("/stake", guard, h.Unstake)

	rg.GET("/boosts", h.ListBoosts)
	rg.GET("/boosts/prices", h.BoostPrices)
	rg.POST("/boosts", guard, h.Boost)
}

type taskView struct {
	catalog.Task
	Completed bool `json:"completed"`
}

// ListTasks handles GET /tasks.
func (h *SpendHandler) ListTasks(c *gin.Context) {
	st := h.svc.Ledger().State()
	tasks := catalog.Tasks()
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskView{Task: t, Completed: st.TaskCompleted(t.ID)})
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

// ClaimTask handles POST /tasks/:id/claim.
func (h *SpendHandler) ClaimTask(c *gin.Context) {
	task, err := h.svc.ClaimTask(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task":   task,
		"ledger": h.svc.Overview(),
	})
}

type tierView struct {
	catalog.Tier
	Current bool `json:"current"`
	Owned   bool `json:"owned"`
}

// ListTiers handles GET /tiers.
func (h *SpendHandler) ListTiers(c *gin.Context) {
	current := h.svc.Ledger().Tier()
	tiers := catalog.Tiers()
	out := make([]tierView, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, tierView{Tier: t, Current: t.ID == current, Owned: t.ID <= current})
	}
	c.JSON(http.StatusOK, gin.H{"tiers": out})
}

// PurchaseTier handles POST /tiers/:tier/purchase.
func (h *SpendHandler) PurchaseTier(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("tier"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tier must be an integer"})
		return
	}
	receipt, err := h.svc.PurchaseTier(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"receipt": receipt,
		"ledger":  h.svc.Overview(),
	})
}

// QuoteSwap handles GET /swap/quote?points=N.
func (h *SpendHandler) QuoteSwap(c *gin.Context) {
	points, err := strconv.ParseInt(c.Query("points"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points must be an integer"})
		return
	}
	quote, err := h.svc.QuoteSwap(points)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

type swapRequest struct {
	Points int64 `json:"points" binding:"required"`
}

// Swap handles POST /swap.
func (h *SpendHandler) Swap(c *gin.Context) {
	var req swapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := h.svc.Swap(c.Request.Context(), req.Points)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"receipt": receipt,
		"ledger":  h.svc.Overview(),
	})
}

// StakeOptions handles GET /stake/options.
func (h *SpendHandler) StakeOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"options": catalog.StakeOptions()})
}

type stakeRequest struct {
	Amount   int64 `json:"amount" binding:"required"`
	LockDays int   `json:"lock_days" binding:"required"`
}

// Stake handles POST /stake.
func (h *SpendHandler) Stake(c *gin.Context) {
	var req stakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := h.svc.Stake(c.Request.Context(), req.Amount, req.LockDays)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"receipt": receipt,
		"ledger":  h.svc.Overview(),
	})
}

// Unstake handles DELETE /stake.
func (h *SpendHandler) Unstake(c *gin.Context) {
	receipt, err := h.svc.Unstake(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"receipt": receipt,
		"ledger":  h.svc.Overview(),
	})
}

// ListBoosts handles GET /boosts.
func (h *SpendHandler) ListBoosts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"boosts": h.svc.Boosts()})
}

// BoostPrices handles GET /boosts/prices.
func (h *SpendHandler) BoostPrices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prices": catalog.BoostPrices()})
}

type boostRequest struct {
	URL   string `json:"url" binding:"required"`
	Token string `json:"token"`
}

// Boost handles POST /boosts.
func (h *SpendHandler) Boost(c *gin.Context) {
	var req boostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := h.svc.Boost(c.Request.Context(), req.URL, req.Token)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"receipt": receipt,
		"boosts":  h.svc.Boosts(),
	})
}
