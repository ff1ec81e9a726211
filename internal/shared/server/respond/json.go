package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload as the response body with the given status code.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK is JSON with http.StatusOK.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}
