// internal/middleware/plugin_auth.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PabloB07/mcshop/internal/flow"
	"github.com/PabloB07/mcshop/internal/models"
)

const (
	apiKeyHeader    = "X-API-Key"
	signatureHeader = "X-Signature"
)

// ServerResolver looks up an active server by its public API key.
// *services.ServerService satisfies it.
type ServerResolver interface {
	GetServerByAPIKey(apiKey string) (*models.MinecraftServer, error)
}

// PluginAuth gates the endpoints called by game-server plugins. The request
// must carry the server's API key and an HMAC signature over the raw body
// (GET requests sign their query parameters serialized as JSON instead).
//
// Every failure path returns the exact same response: an unknown key must be
// indistinguishable from a bad signature so the endpoint cannot be used to
// enumerate registered keys.
func PluginAuth(servers ServerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(apiKeyHeader)
		signature := c.GetHeader(signatureHeader)
		if apiKey == "" || signature == "" {
			pluginAuthFailed(c)
			return
		}

		server, err := servers.GetServerByAPIKey(apiKey)
		if err != nil {
			pluginAuthFailed(c)
			return
		}

		payload, err := signaturePayload(c)
		if err != nil {
			pluginAuthFailed(c)
			return
		}

		if !flow.VerifyBody(payload, signature, server.APISecret) {
			pluginAuthFailed(c)
			return
		}

		c.Set("minecraft_server", server)
		c.Next()
	}
}

// signaturePayload returns the bytes the signature must cover. The body is
// re-buffered so handlers can still bind it.
func signaturePayload(c *gin.Context) ([]byte, error) {
	if c.Request.Method == http.MethodGet {
		params := map[string]string{}
		for key, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
		// json.Marshal sorts map keys, both sides serialize identically.
		return json.Marshal(params)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// pluginAuthFailed writes the one uniform rejection used for every failure
// mode of the gate.
func pluginAuthFailed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "AUTHENTICATION_FAILED",
			"message": "Authentication failed",
		},
	})
}

// ServerFromContext retrieves the authenticated server set by PluginAuth.
func ServerFromContext(c *gin.Context) (*models.MinecraftServer, bool) {
	value, exists := c.Get("minecraft_server")
	if !exists {
		return nil, false
	}
	server, ok := value.(*models.MinecraftServer)
	return server, ok
}
