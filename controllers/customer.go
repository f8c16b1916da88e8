package controllers

import (
	"net/http"
	"strconv"

	"creditbook/config"
	"creditbook/services"
	"creditbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateCustomerInput defines the expected JSON structure for creating a customer
type CreateCustomerInput struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

// UpdateCustomerInput defines the expected JSON structure for updating a
// customer. IsDeleted doubles as recycle-bin soft-delete and restore.
type UpdateCustomerInput struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	IsDeleted *bool   `json:"isDeleted"`
}

// CreateCustomer creates a new customer in the owner's partition
func CreateCustomer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input CreateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ledger := services.NewLedgerService(config.DB)
	customer, err := ledger.CreateCustomer(userID, input.Name, input.Phone)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// GetCustomers retrieves the owner's customers, filtered by recycle-bin
// state via ?deleted=true|false (default false).
func GetCustomers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	deleted := false
	if v := c.Query("deleted"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid deleted filter")
			return
		}
		deleted = parsed
	}

	ledger := services.NewLedgerService(config.DB)
	customers, err := ledger.ListCustomers(userID, deleted)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, customers)
}

// GetCustomer retrieves a specific customer by ID
func GetCustomer(c *gin.Context) {
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
	customer, err := ledger.GetCustomer(userID, customerUUID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// UpdateCustomer edits a customer and toggles its recycle-bin state
func UpdateCustomer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	customerUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	var input UpdateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ledger := services.NewLedgerService(config.DB)
	customer, err := ledger.UpdateCustomer(userID, customerUUID, input.Name, input.Phone, input.IsDeleted)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer permanently purges a recycle-bin customer and its history
func DeleteCustomer(c *gin.Context) {
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
	if err := ledger.PurgeCustomer(userID, customerUUID); err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer purged successfully"})
}
