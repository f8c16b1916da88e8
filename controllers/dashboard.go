package controllers

import (
	"net/http"

	"creditbook/config"
	"creditbook/services"

	"github.com/gin-gonic/gin"
)

// GetDashboardSummary computes the owner's overview as a live aggregate:
// outstanding balance over active customers, today's collected payments,
// and the active customer count. Nothing here is cached.
func GetDashboardSummary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ledger := services.NewLedgerService(config.DB)
	summary, err := ledger.Summary(userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
