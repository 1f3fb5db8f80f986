package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobdigest/jobdigest/internal/api/dto"
	"github.com/jobdigest/jobdigest/internal/catalog"
	"github.com/jobdigest/jobdigest/internal/domain"
)

// PreferenceHandler handles subscriber preference requests.
type PreferenceHandler struct {
	logger *slog.Logger
	prefs  *catalog.PreferenceStore
}

// NewPreferenceHandler creates a new PreferenceHandler instance
func NewPreferenceHandler(deps *Dependencies) *PreferenceHandler {
	return &PreferenceHandler{
		logger: deps.Logger,
		prefs:  deps.Prefs,
	}
}

// GetPreference handles GET /api/v1/subscribers/:subscriber_id/preferences
func (h *PreferenceHandler) GetPreference(c *gin.Context) {
	subscriberID := c.Param("subscriber_id")

	pref, err := h.prefs.Preference(c.Request.Context(), subscriberID)
	if errors.Is(err, domain.ErrPreferenceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "preference not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get preference",
			slog.String("subscriber_id", subscriberID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get preference",
		})
		return
	}

	c.JSON(http.StatusOK, toPreferenceResponse(pref))
}

// PutPreference handles PUT /api/v1/subscribers/:subscriber_id/preferences
// The whole preference record is replaced atomically.
func (h *PreferenceHandler) PutPreference(c *gin.Context) {
	subscriberID := c.Param("subscriber_id")

	var req dto.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	pref := domain.Preference{
		SubscriberID:     subscriberID,
		Language:         domain.LanguageScope(req.Language),
		LocationMode:     domain.LocationMode(req.LocationMode),
		PreferredCountry: req.PreferredCountry,
		Skills:           req.Skills,
		Cadence:          req.Cadence,
		Slots:            req.Slots,
	}
	if err := pref.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.prefs.ReplacePreference(c.Request.Context(), pref); err != nil {
		h.logger.Error("Failed to replace preference",
			slog.String("subscriber_id", subscriberID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to store preference",
		})
		return
	}

	c.JSON(http.StatusOK, toPreferenceResponse(pref))
}

func toPreferenceResponse(pref domain.Preference) dto.PreferenceResponse {
	return dto.PreferenceResponse{
		SubscriberID:     pref.SubscriberID,
		Language:         string(pref.Language),
		LocationMode:     string(pref.LocationMode),
		PreferredCountry: pref.PreferredCountry,
		Skills:           pref.Skills,
		Cadence:          pref.Cadence,
		Slots:            pref.Slots,
	}
}
