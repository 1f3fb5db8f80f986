package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobdigest/jobdigest/internal/api/dto"
	"github.com/jobdigest/jobdigest/internal/catalog"
	"github.com/jobdigest/jobdigest/internal/domain"
)

// NotificationHandler handles on-demand notifications, click tracking and
// delivery statistics.
type NotificationHandler struct {
	logger   *slog.Logger
	ledger   *catalog.NotificationLedger
	jobs     *catalog.JobStore
	notifier Notifier
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(deps *Dependencies) *NotificationHandler {
	return &NotificationHandler{
		logger:   deps.Logger,
		ledger:   deps.Ledger,
		jobs:     deps.Jobs,
		notifier: deps.Notifier,
	}
}

// NotifyNow handles POST /api/v1/subscribers/:subscriber_id/notifications
// Runs an on-demand matching pass, bypassing the cadence check.
func (h *NotificationHandler) NotifyNow(c *gin.Context) {
	subscriberID := c.Param("subscriber_id")

	report, err := h.notifier.NotifyNow(c.Request.Context(), subscriberID)
	if errors.Is(err, domain.ErrPreferenceNotFound) || errors.Is(err, domain.ErrSubscriberNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "subscriber not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("On-demand notification failed",
			slog.String("subscriber_id", subscriberID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "notification pass failed",
		})
		return
	}

	c.JSON(http.StatusOK, dto.DispatchResponse{
		Sent:    report.Sent,
		Skipped: report.Skipped,
		Failed:  report.Failed,
	})
}

// MarkClicked handles POST /api/v1/subscribers/:subscriber_id/notifications/:job_id/click
func (h *NotificationHandler) MarkClicked(c *gin.Context) {
	subscriberID := c.Param("subscriber_id")

	jobID, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be an integer",
		})
		return
	}

	err = h.ledger.MarkClicked(c.Request.Context(), subscriberID, jobID, time.Now().UTC())
	if errors.Is(err, domain.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "notification not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to mark notification clicked",
			slog.String("subscriber_id", subscriberID),
			slog.Int64("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to record click",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clicked": true,
	})
}

// Stats handles GET /api/v1/stats
func (h *NotificationHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.ledger.Stats(ctx)
	if err != nil {
		h.logger.Error("Failed to collect stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to collect stats",
		})
		return
	}

	perSource, err := h.jobs.SourceCounts(ctx)
	if err != nil {
		h.logger.Error("Failed to count jobs per source", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to collect stats",
		})
		return
	}

	clickRate := 0.0
	if stats.TotalNotifications > 0 {
		clickRate = float64(stats.ClickedCount) / float64(stats.TotalNotifications)
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		ActiveSubscribers:  stats.ActiveSubscribers,
		ActiveJobs:         stats.ActiveJobs,
		TotalJobs:          stats.TotalJobs,
		TotalNotifications: stats.TotalNotifications,
		ClickedCount:       stats.ClickedCount,
		ClickRate:          clickRate,
		JobsPerSource:      perSource,
	})
}
