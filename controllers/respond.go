package controllers

import (
	"net/http"

	"creditbook/services"
	"creditbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondWithServiceError maps the ledger service's typed failures onto
// HTTP statuses. Anything unclassified is a 500.
func respondWithServiceError(c *gin.Context, err error) {
	switch {
	case services.IsValidation(err):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case services.IsNotFound(err):
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
	case services.IsAuth(err):
		utils.RespondWithError(c, http.StatusUnauthorized, err.Error())
	case services.IsConflict(err):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}

// currentUserID pulls the authenticated owner's ID out of the JWT claims
// set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(userID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format")
		return uuid.Nil, false
	}
	return id, true
}
