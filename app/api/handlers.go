package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/market-comb/app/cfg"
	"github.com/lysyi3m/market-comb/app/database"
	"github.com/lysyi3m/market-comb/app/market"
	"github.com/lysyi3m/market-comb/app/source"
	"github.com/lysyi3m/market-comb/app/tasks"
)

const (
	defaultListingLimit = 50
	maxListingLimit     = 500
)

func NewHandler(store tasks.Store, registry *source.Registry, scheduler tasks.TaskSchedulerInterface, community string) *Handler {
	return &Handler{
		store:     store,
		registry:  registry,
		scheduler: scheduler,
		community: community,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.GetVersion(),
		"sources":   h.registry.Count(),
	}

	err := h.store.WithConn(c.Request.Context(), func(s database.Session) error {
		total, _, _, err := s.Sales.GetStats(c.Request.Context())
		if err != nil {
			return err
		}
		health["listings"] = total
		return nil
	})
	if err != nil {
		slog.Error("Database error", "operation", "health", "error", err)
		health["database"] = "unavailable"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	health["database"] = "ok"
	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := map[string]interface{}{}

	err := h.store.WithConn(ctx, func(s database.Session) error {
		total, approved, promoted, err := s.Sales.GetStats(ctx)
		if err != nil {
			return err
		}
		users, err := s.Users.Count(ctx)
		if err != nil {
			return err
		}
		stats["listings"] = map[string]interface{}{
			"total":    total,
			"approved": approved,
			"promoted": promoted,
		}
		stats["users"] = users
		return nil
	})
	if err != nil {
		slog.Error("Database error", "operation", "stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stats["community"] = h.community
	stats["sources"] = h.registry.Count()
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources := h.registry.Sources()
	out := make([]map[string]interface{}, 0, len(sources))
	for _, src := range sources {
		out = append(out, map[string]interface{}{
			"name":         src.Name,
			"category":     h.registry.Category(src.Name),
			"strict":       src.Strict,
			"required_tag": src.RequiredTag,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": out,
		"total":   len(out),
	})
}

func (h *Handler) APIListListings(c *gin.Context) {
	limit := defaultListingLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListingLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxListingLimit)})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	var records []market.Record
	err := h.store.WithConn(ctx, func(s database.Session) error {
		var err error
		records, err = s.Sales.ListRecent(ctx, limit)
		return err
	})
	if err != nil {
		slog.Error("Database error", "operation", "list_listings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	listings := make([]listingResponse, 0, len(records))
	for _, rec := range records {
		listings = append(listings, listingResponse{
			ID:           rec.ID,
			Author:       rec.Author,
			Title:        rec.Payload.Title,
			Category:     rec.Payload.Category,
			URL:          market.ThreadPath(h.community, rec.ID),
			Created:      rec.CreatedAt.In(time.Local).Format(time.RFC3339),
			Unstructured: rec.Unstructured,
			Approved:     rec.Approved,
			Promoted:     rec.Promoted,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"listings": listings,
		"total":    len(listings),
	})
}

func (h *Handler) APIPromoteListing(c *gin.Context) {
	id := c.Param("id")

	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body must be {\"promoted\": true|false}"})
		return
	}

	ctx := c.Request.Context()
	var found bool
	err := h.store.WithConn(ctx, func(s database.Session) error {
		var err error
		found, err = s.Sales.SetPromoted(ctx, id, *req.Promoted)
		return err
	})
	if err != nil {
		slog.Error("Database error", "operation", "promote_listing", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "promoted": *req.Promoted})
}

func (h *Handler) APIGetUser(c *gin.Context) {
	name := c.Param("name")

	ctx := c.Request.Context()
	var user market.User
	err := h.store.WithConn(ctx, func(s database.Session) error {
		var err error
		user, err = s.Users.GetUser(ctx, name)
		return err
	})
	if err != nil {
		slog.Error("Database error", "operation", "get_user", "user", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, userResponse{
		Name:        user.Name,
		PosFeedback: user.PosFeedback,
		NegFeedback: user.NegFeedback,
	})
}

func (h *Handler) APITriggerCycle(c *gin.Context) {
	lane, ok := tasks.ParseLane(c.Param("lane"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown cycle", "cycles": []tasks.Lane{tasks.LaneDiscovery, tasks.LaneMaintenance}})
		return
	}

	if err := h.scheduler.Trigger(lane); err != nil {
		slog.Error("Error enqueueing cycle", "lane", lane, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue cycle",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Cycle enqueued",
		"cycle":   lane,
	})
}

// healthTimeout bounds the database probe of /health.
const healthTimeout = 5 * time.Second

// requestTimeout bounds store access of every other handler. It stays below
// the server's WriteTimeout.
var requestTimeout = 10 * time.Second

func withTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
