package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vendora/presence/internal/models"
)

type pushDecisionResponse struct {
	ShouldSendPush   bool   `json:"should_send_push"`
	Reason           string `json:"reason"`
	Confidence       string `json:"confidence"`
	LastActivity     string `json:"last_activity"`
	ConnectionStatus string `json:"connection_status"`
	ViewportStatus   string `json:"viewport_status"`
}

func (h HandlerSet) PushEligibility(c *gin.Context) {
	userID := c.Param("userID")
	category := models.NotificationCategory(c.DefaultQuery("category", string(models.CategoryChat)))
	if userID == "" || !category.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	decision := h.service.CheckPushEligibility(c.Request.Context(), userID, category)
	c.JSON(http.StatusOK, pushDecisionResponse{
		ShouldSendPush:   decision.ShouldSendPush,
		Reason:           string(decision.Reason),
		Confidence:       string(decision.Confidence),
		LastActivity:     decision.LastActivity,
		ConnectionStatus: string(decision.ConnectionStatus),
		ViewportStatus:   string(decision.ViewportStatus),
	})
}

func (h HandlerSet) EligibleUsers(c *gin.Context) {
	category := models.NotificationCategory(c.DefaultQuery("category", string(models.CategoryChat)))
	if !category.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_category"})
		return
	}

	userIDs := h.service.EligibleUsers(c.Request.Context(), category)
	if userIDs == nil {
		userIDs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": userIDs, "count": len(userIDs)})
}
