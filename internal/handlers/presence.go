package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vendora/presence/internal/middleware"
	"vendora/presence/internal/models"
	"vendora/presence/internal/presence"
)

type connectResponse struct {
	SessionID string `json:"session_id"`
}

func (h HandlerSet) Connect(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	sessionID := h.service.Initialize(c.Request.Context(), userID, c.GetHeader("User-Agent"))
	if sessionID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_user"})
		return
	}
	c.JSON(http.StatusOK, connectResponse{SessionID: sessionID})
}

func (h HandlerSet) Disconnect(c *gin.Context) {
	h.service.Cleanup(c.Request.Context(), middleware.CurrentUserID(c))
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Heartbeat(c *gin.Context) {
	h.service.Ping(c.Request.Context(), middleware.CurrentUserID(c))
	c.Status(http.StatusNoContent)
}

type viewportRequest struct {
	Visible bool `json:"visible"`
}

func (h HandlerSet) Viewport(c *gin.Context) {
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	h.service.Registry().SetViewportVisible(middleware.CurrentUserID(c), req.Visible)
	c.Status(http.StatusNoContent)
}

type activityRequest struct {
	ActivityType string `json:"activity_type" binding:"required"`
	Page         string `json:"page"`
	ProductID    string `json:"product_id"`
	ChatID       string `json:"chat_id"`
}

func (h HandlerSet) TrackActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	activityType := models.ActivityType(req.ActivityType)
	if !activityType.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_activity_type"})
		return
	}

	h.service.Track(c.Request.Context(), middleware.CurrentUserID(c), activityType, models.ActivityMetadata{
		Page:      req.Page,
		ProductID: req.ProductID,
		ChatID:    req.ChatID,
	})
	c.Status(http.StatusAccepted)
}

type activityEventResponse struct {
	ID           string    `json:"id"`
	ActivityType string    `json:"activity_type"`
	Timestamp    time.Time `json:"timestamp"`
	Page         string    `json:"page,omitempty"`
	ProductID    string    `json:"product_id,omitempty"`
	ChatID       string    `json:"chat_id,omitempty"`
}

func (h HandlerSet) RecentActivity(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	events := h.service.RecentActivity(c.Request.Context(), userID, 10)

	out := make([]activityEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, activityEventResponse{
			ID:           ev.ID,
			ActivityType: string(ev.ActivityType),
			Timestamp:    ev.Timestamp,
			Page:         ev.Metadata.Page,
			ProductID:    ev.Metadata.ProductID,
			ChatID:       ev.Metadata.ChatID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

type statusResponse struct {
	UserID     string `json:"user_id"`
	IsOnline   bool   `json:"is_online"`
	LastSeen   string `json:"last_seen"`
	TimeSince  string `json:"time_since"`
	Preference string `json:"preference"`
}

func (h HandlerSet) GetStatus(c *gin.Context) {
	userID := c.Param("userID")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing_user"})
		return
	}

	p := h.service.GetOnlineStatus(c.Request.Context(), userID)
	c.JSON(http.StatusOK, statusResponse{
		UserID:     p.UserID,
		IsOnline:   p.IsOnline,
		LastSeen:   p.LastSeen.UTC().Format(time.RFC3339),
		TimeSince:  presence.FormatTimeSince(p.LastSeen, time.Now()),
		Preference: string(p.Preference),
	})
}

func (h HandlerSet) OnlineCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.service.OnlineCount(c.Request.Context())})
}

type preferenceRequest struct {
	Preference string `json:"preference" binding:"required"`
}

func (h HandlerSet) SetPreference(c *gin.Context) {
	var req preferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	pref := models.Preference(req.Preference)
	if !pref.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_preference"})
		return
	}

	if err := h.service.SetPreference(c.Request.Context(), middleware.CurrentUserID(c), pref); err != nil {
		h.log.Error().Err(err).Msg("set preference failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "preference_update_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type manualStatusRequest struct {
	IsOnline *bool `json:"is_online" binding:"required"`
}

func (h HandlerSet) UpdateManualStatus(c *gin.Context) {
	var req manualStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsOnline == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	if err := h.service.UpdateManualStatus(c.Request.Context(), middleware.CurrentUserID(c), *req.IsOnline); err != nil {
		h.log.Error().Err(err).Msg("manual status update failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status_update_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type notificationPrefsRequest struct {
	Chat      bool `json:"chat"`
	Orders    bool `json:"orders"`
	Marketing bool `json:"marketing"`
}

func (h HandlerSet) SetNotificationPrefs(c *gin.Context) {
	var req notificationPrefsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	prefs := models.NotificationPrefs{
		Chat:      req.Chat,
		Orders:    req.Orders,
		Marketing: req.Marketing,
	}
	if err := h.service.SetNotificationPrefs(c.Request.Context(), middleware.CurrentUserID(c), prefs); err != nil {
		h.log.Error().Err(err).Msg("notification prefs update failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "prefs_update_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
