package controllers

import (
	"net/http"

	"creditbook/config"
	"creditbook/models"
	"creditbook/utils"

	"github.com/gin-gonic/gin"
)

// GetReminderLogs lists the payment reminders sent for the owner's
// customers, newest first.
func GetReminderLogs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var logs []models.ReminderLog
	if err := config.DB.Where("user_id = ?", userID).
		Order("sent_at DESC").
		Limit(100).
		Find(&logs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve reminder logs")
		return
	}

	c.JSON(http.StatusOK, logs)
}
