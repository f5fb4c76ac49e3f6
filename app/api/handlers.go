package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lameiro/event-comb/app/database"
	"github.com/lameiro/event-comb/app/event"
	"github.com/lameiro/event-comb/app/sources"
	"github.com/lameiro/event-comb/app/tasks"
)

func NewHandler(configCache *sources.ConfigCache, eventRepo database.EventRepository,
	snapshot *event.Snapshot, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		eventRepo:   eventRepo,
		configCache: configCache,
		snapshot:    snapshot,
		scheduler:   scheduler,
	}
}

// GetCalendar serves the most recently published day-bucketed calendar.
// Buckets are read-only after publishing, so no locking beyond the snapshot
// swap is needed here.
func (h *Handler) GetCalendar(c *gin.Context) {
	buckets, updatedAt := h.snapshot.Get()
	if buckets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Calendar has not been published yet"})
		return
	}

	days := make([]map[string]interface{}, 0, len(buckets))
	total := 0

	for _, bucket := range buckets {
		events := make([]map[string]interface{}, 0, len(bucket.Events))
		for _, rec := range bucket.Events {
			events = append(events, map[string]interface{}{
				"title":           rec.Title,
				"link":            rec.Link,
				"price":           rec.Price,
				"description":     rec.Description,
				"image":           rec.Image,
				"location":        rec.Location,
				"categories":      rec.Categories,
				"source":          rec.Source,
				"init_date":       rec.InitDateISO,
				"end_date":        rec.EndDateISO,
				"init_date_human": rec.InitDateHuman,
				"end_date_human":  rec.EndDateHuman,
			})
		}
		total += len(events)

		days = append(days, map[string]interface{}{
			"index":  bucket.Index,
			"date":   bucket.Date.Format("2006-01-02"),
			"label":  bucket.Label,
			"events": events,
		})
	}

	c.Header("X-Event-Count", strconv.Itoa(total))
	c.Header("X-Last-Updated", updatedAt.Format(time.RFC3339))

	c.JSON(http.StatusOK, gin.H{
		"days":       days,
		"total":      total,
		"updated_at": updatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if eventCount, err := h.eventRepo.GetEventCount(); err == nil {
		health["events"] = eventCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"loaded_configurations": h.configCache.GetConfigCount(),
	}

	if eventCount, err := h.eventRepo.GetEventCount(); err == nil {
		stats["events"] = eventCount
	}

	if sourceCounts, err := h.eventRepo.GetSourceCounts(); err == nil {
		stats["sources"] = sourceCounts
	}

	if buckets, updatedAt := h.snapshot.Get(); buckets != nil {
		published := 0
		for _, bucket := range buckets {
			published += len(bucket.Events)
		}
		stats["published"] = map[string]interface{}{
			"days":       len(buckets),
			"events":     published,
			"updated_at": updatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sourceCounts, err := h.eventRepo.GetSourceCounts()
	if err != nil {
		slog.Error("Database error", "operation", "get_source_counts", "error", err)
		sourceCounts = map[string]int{}
	}

	list := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"type":             string(sourceConfig.Type),
			"enabled":          sourceConfig.Settings.Enabled,
			"trust_score":      sourceConfig.Settings.TrustScore,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"revisit_days":     sourceConfig.Settings.RevisitDays,
			"event_count":      sourceCounts[sourceConfig.Name],
		}

		list = append(list, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": list,
		"total":   len(list),
	})
}

// APIRefresh rebuilds the published calendar from storage without
// re-fetching any source.
func (h *Handler) APIRefresh(c *gin.Context) {
	if err := h.scheduler.EnqueuePublish(); err != nil {
		slog.Error("Error enqueueing publish task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue publish task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Calendar publish enqueued",
	})
}

// APIRefreshSource reloads a source configuration, fetches it immediately
// and republishes the calendar.
func (h *Handler) APIRefreshSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading source configuration", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Source configuration not found",
			"details": err.Error(),
		})
		return
	}

	if err := h.scheduler.EnqueueFetch(name); err != nil {
		slog.Error("Error enqueueing fetch task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue fetch task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and fetch enqueued, calendar republish follows",
		"source": gin.H{
			"name": name,
			"url":  sourceConfig.URL,
			"type": string(sourceConfig.Type),
		},
	})
}
