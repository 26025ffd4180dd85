package agenthttp

import (
	"net/http"
	"strconv"
	"strings"

	"tickbot/internal/agent/engine"
	"tickbot/internal/dex"
	"tickbot/internal/store/gormstore"

	"github.com/gin-gonic/gin"
)

// Router exposes engine control and inspection endpoints.
type Router struct {
	Engine  *engine.Engine
	Source  dex.StateSource
	Actions *gormstore.GormStore

	// DefaultMarket is started when a start request carries no market.
	DefaultMarket string
}

// NewRouter builds the agent HTTP router.
func NewRouter(eng *engine.Engine, source dex.StateSource, actions *gormstore.GormStore, defaultMarket string) *Router {
	return &Router{Engine: eng, Source: source, Actions: actions, DefaultMarket: defaultMarket}
}

// Register mounts the routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/logs", r.handleLogs)
	group.DELETE("/logs", r.handleClearLogs)
	group.GET("/market", r.handleMarket)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.POST("/pause", r.handlePause)
	group.POST("/resume", r.handleResume)
	group.POST("/cancel-orders", r.handleCancelOrders)
	group.POST("/cancel-triggers", r.handleCancelTriggers)
	if r.Actions != nil {
		group.GET("/actions", r.handleActions)
		group.GET("/report", r.handleReport)
	}
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.Engine.Status())
}

func (r *Router) handleLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	entries := r.Engine.Log(limit)
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (r *Router) handleClearLogs(c *gin.Context) {
	r.Engine.ClearLog()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (r *Router) handleMarket(c *gin.Context) {
	st, err := r.Source.MarketState(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

type startRequest struct {
	Market string `json:"market"`
}

func (r *Router) handleStart(c *gin.Context) {
	var req startRequest
	_ = c.ShouldBindJSON(&req)
	market := strings.TrimSpace(req.Market)
	if market == "" {
		market = r.DefaultMarket
	}
	if err := r.Engine.Start(market); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.Engine.Status())
}

func (r *Router) handleStop(c *gin.Context) {
	r.Engine.Stop()
	c.JSON(http.StatusOK, r.Engine.Status())
}

func (r *Router) handlePause(c *gin.Context) {
	if err := r.Engine.Pause(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.Engine.Status())
}

func (r *Router) handleResume(c *gin.Context) {
	if err := r.Engine.Resume(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.Engine.Status())
}

func (r *Router) handleCancelOrders(c *gin.Context) {
	n, err := r.Engine.CancelAllOrders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": n})
}

func (r *Router) handleCancelTriggers(c *gin.Context) {
	n, err := r.Engine.CancelAllTriggers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": n})
}

func (r *Router) handleActions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	records, err := r.Actions.RecentActions(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": records, "count": len(records)})
}
