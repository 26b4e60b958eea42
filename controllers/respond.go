package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-api/services"
)

// respondOK wraps every successful response in the API envelope.
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError wraps failures. Callers pass either a *ServiceError or
// a status and message directly.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func respondServiceError(c *gin.Context, serr *services.ServiceError) {
	respondError(c, serr.StatusCode, serr.Message)
}
