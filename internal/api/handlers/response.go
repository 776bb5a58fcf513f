// internal/api/handlers/response.go
package handlers

import "github.com/gin-gonic/gin"

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}
