package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gaixen/credtech-ingest/app/cfg"
	"github.com/gaixen/credtech-ingest/app/storage"
)

const defaultListLimit = 50

func (h *Handler) HealthCheck(c *gin.Context) {
	enabled := 0
	for _, source := range h.sources {
		if source.Enabled() {
			enabled++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"version":         cfg.Get().Version,
		"sources":         len(h.sources),
		"sources_enabled": enabled,
	})
}

// GetStats returns the per-source quality rollup over the trailing 24h
// window, the same numbers the periodic monitor logs.
func (h *Handler) GetStats(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)

	names := make([]string, 0, len(h.sources))
	for name := range h.sources {
		names = append(names, name)
	}
	sort.Strings(names)

	stats := make(map[string]interface{}, len(names))
	for _, name := range names {
		rollup, err := h.storage.GetDataQualityStats(c.Request.Context(), name, since)
		if err != nil {
			slog.Error("Failed to get quality stats", "source", name, "error", err)
			continue
		}
		stats[name] = gin.H{
			"enabled": h.sources[name].Enabled(),
			"quality": rollup,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"window_hours": 24,
		"sources":      stats,
	})
}

// ListRecords returns stored records narrowed by the query filters:
// source, type, from, to (RFC3339), tag (repeatable), limit, offset.
func (h *Handler) ListRecords(c *gin.Context) {
	filters := storage.Filters{
		Source: c.Query("source"),
		Type:   c.Query("type"),
		Tags:   c.QueryArray("tag"),
		Limit:  intQuery(c, "limit", defaultListLimit),
		Offset: intQuery(c, "offset", 0),
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp, expected RFC3339"})
			return
		}
		filters.DateFrom = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp, expected RFC3339"})
			return
		}
		filters.DateTo = &t
	}

	records, err := h.storage.ListUnstructuredData(c.Request.Context(), filters)
	if err != nil {
		if errors.Is(err, storage.ErrNotImplemented) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "Listing is not supported by the active storage backend"})
			return
		}
		slog.Error("Failed to list records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

func (h *Handler) GetRecord(c *gin.Context) {
	id := c.Param("id")

	record, err := h.storage.GetUnstructuredData(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		case errors.Is(err, storage.ErrNotImplemented):
			c.JSON(http.StatusNotImplemented, gin.H{"error": "Lookup is not supported by the active storage backend"})
		default:
			slog.Error("Failed to get record", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
		}
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListJobs returns pending processing jobs, optionally narrowed to one
// job type.
func (h *Handler) ListJobs(c *gin.Context) {
	jobs, err := h.storage.GetPendingJobs(c.Request.Context(), c.Query("type"), intQuery(c, "limit", defaultListLimit))
	if err != nil {
		if errors.Is(err, storage.ErrNotImplemented) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "Job listing is not supported by the active storage backend"})
			return
		}
		slog.Error("Failed to list jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
