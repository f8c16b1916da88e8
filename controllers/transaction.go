package controllers

import (
	"net/http"

	"creditbook/config"
	"creditbook/services"
	"creditbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateTransactionInput defines the expected JSON structure for recording
// a ledger entry
type CreateTransactionInput struct {
	CustomerID  uuid.UUID `json:"customerId" binding:"required"`
	Amount      float64   `json:"amount" binding:"required"`
	Type        string    `json:"type" binding:"required"`
	Description string    `json:"description"`
}

// CreateTransaction records a CREDIT or PAYMENT entry and adjusts the
// customer's balance atomically. The response carries the post-apply
// balance so clients never have to derive it.
func CreateTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input CreateTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ledger := services.NewLedgerService(config.DB)
	entry, totalDue, err := ledger.ApplyTransaction(userID, input.CustomerID, input.Amount, input.Type, input.Description)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"transaction":      entry,
		"customerTotalDue": totalDue,
	})
}

// GetCustomerTransactions returns a customer's full history in creation order
func GetCustomerTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	ledger := services.NewLedgerService(config.DB)
	entries, err := ledger.ListTransactions(userID, customerUUID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
