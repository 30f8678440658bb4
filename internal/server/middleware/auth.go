package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/milktracker/internal/server/handlers"
)

// Header names carrying the shared secrets.
const (
	PINHeader        = "x-app-pin"
	CronSecretHeader = "x-cron-secret"
)

// RequirePIN rejects requests whose x-app-pin header does not match pin.
func RequirePIN(pin string) gin.HandlerFunc {
	return requireSecret(PINHeader, pin, "invalid or missing app pin")
}

// RequireCronSecret rejects requests whose x-cron-secret header does not match secret.
func RequireCronSecret(secret string) gin.HandlerFunc {
	return requireSecret(CronSecretHeader, secret, "unauthorized cron request")
}

func requireSecret(header, secret, message string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(header))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			handlers.RespondError(c, http.StatusUnauthorized, message)
			return
		}
		c.Next()
	}
}
