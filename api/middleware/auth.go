package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/fraudlens/models"
)

// Auth rejects requests without a configured API key. The key is read from
// X-API-Key or an Authorization bearer token and becomes the caller's
// identity for DailyLimit. An empty key list leaves the API open.
func Auth(apiKeys []string) gin.HandlerFunc {
	var keys [][]byte
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		presented := presentedKey(c)
		switch {
		case presented == "":
			abortWithKind(c, models.KindUnauthorized, "provide X-API-Key header or Authorization: Bearer <key>")
		case !knownKey(keys, presented):
			abortWithKind(c, models.KindUnauthorized, "invalid API key")
		default:
			c.Set(apiKeyKey, presented)
			c.Next()
		}
	}
}

// knownKey compares in constant time against every configured key.
func knownKey(keys [][]byte, presented string) bool {
	p := []byte(presented)
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, p)
	}
	return found == 1
}

func presentedKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("X-API-Key")); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// clientIdentity is the authenticated API key when Auth ran, otherwise the
// client IP.
func clientIdentity(c *gin.Context) string {
	if key := c.GetString(apiKeyKey); key != "" {
		return "key:" + key
	}
	return "ip:" + c.ClientIP()
}

// abortWithKind writes the standard error body for kind and stops the chain.
func abortWithKind(c *gin.Context, kind models.ErrorKind, details string) {
	c.AbortWithStatusJSON(models.StatusForKind(kind),
		models.NewErrorResponse(kind, details, GetRequestID(c)))
}
