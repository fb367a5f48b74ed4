package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/utils"
)

const (
	HeaderAPIKey        = "X-MX-VALIDATOR-API-KEY"
	CookieVerifiedEmail = "mx_validator_verified_email"

	MsgUnauthorized = "Unauthorized. Please verify your email to access this tool."
)

// AccessGateConfig holds the configuration for the access gate
type AccessGateConfig struct {
	HeaderName  string
	ValidAPIKey string
	CookieName  string
}

// AccessGateMiddleware lets a request through when it carries the service
// API key, or a signed cookie for an email that is still verified.
func AccessGateMiddleware(config AccessGateConfig, access interfaces.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader(config.HeaderName))
		if apiKey != "" && config.ValidAPIKey != "" &&
			subtle.ConstantTimeCompare([]byte(apiKey), []byte(config.ValidAPIKey)) == 1 {
			c.Next()
			return
		}

		email, ok := VerifiedEmail(c, config.CookieName, access)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": MsgUnauthorized,
			})
			c.Abort()
			return
		}

		c.Set(utils.GinKeyUserEmail, email)
		c.Next()
	}
}

// VerifiedEmail returns the email carried by the access cookie if its token
// is valid and the user is still verified.
func VerifiedEmail(c *gin.Context, cookieName string, access interfaces.AccessService) (string, bool) {
	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		return "", false
	}

	email, err := access.ParseAccessToken(token)
	if err != nil {
		return "", false
	}

	if !access.IsAuthorized(c.Request.Context(), email) {
		return "", false
	}
	return email, true
}
