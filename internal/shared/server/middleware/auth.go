package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kyc-backend/internal/shared/auth"
	"kyc-backend/internal/shared/server/respond"
)

const (
	applicantIDKey    = "applicantId"
	applicantEmailKey = "applicantEmail"
	applicantNameKey  = "applicantName"
	isGuestKey        = "isGuest"
)

// Auth validates JWTs or guest headers and stores the applicant identity in context.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if path == "/metrics" || path == "/api/v1/health" || strings.HasPrefix(path, "/api/v1/auth/google/") {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(applicantIDKey, claims.Sub)
			if claims.Email != "" {
				c.Set(applicantEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(applicantNameKey, claims.Name)
			}
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Applicant-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(applicantIDKey, "guest:"+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// ApplicantIDFromContext fetches the applicant ID set by the auth middleware.
func ApplicantIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(applicantIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
