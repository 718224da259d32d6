// internal/middleware/plugin_auth_test.go
package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/PabloB07/mcshop/internal/flow"
	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubServerResolver struct {
	server *models.MinecraftServer
}

func (s *stubServerResolver) GetServerByAPIKey(apiKey string) (*models.MinecraftServer, error) {
	if s.server != nil && s.server.APIKey == apiKey {
		return s.server, nil
	}
	return nil, services.ErrAuthentication
}

func pluginTestRouter(resolver ServerResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/plugin/execute", PluginAuth(resolver), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/plugin/pending-orders", PluginAuth(resolver), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func knownServer() *models.MinecraftServer {
	return &models.MinecraftServer{
		Name:      "lobby-1",
		APIKey:    "KNOWN-KEY",
		APISecret: testSecret,
		Active:    true,
	}
}

func TestPluginAuthAcceptsValidSignature(t *testing.T) {
	router := pluginTestRouter(&stubServerResolver{server: knownServer()})

	body := []byte(`{"executed_command_id":"e1","success":true}`)
	req := httptest.NewRequest("POST", "/plugin/execute", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "KNOWN-KEY")
	req.Header.Set("X-Signature", flow.SignBody(body, testSecret))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPluginAuthRejectsBadSignature(t *testing.T) {
	router := pluginTestRouter(&stubServerResolver{server: knownServer()})

	body := []byte(`{"executed_command_id":"e1","success":true}`)
	req := httptest.NewRequest("POST", "/plugin/execute", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "KNOWN-KEY")
	req.Header.Set("X-Signature", flow.SignBody(body, "wrong-secret"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPluginAuthRejectsTamperedBody(t *testing.T) {
	router := pluginTestRouter(&stubServerResolver{server: knownServer()})

	signed := []byte(`{"success":true}`)
	tampered := []byte(`{"success":false}`)
	req := httptest.NewRequest("POST", "/plugin/execute", bytes.NewReader(tampered))
	req.Header.Set("X-API-Key", "KNOWN-KEY")
	req.Header.Set("X-Signature", flow.SignBody(signed, testSecret))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// An unknown key and a known key with a wrong signature must be impossible to
// tell apart, otherwise the endpoint leaks which keys exist.
func TestPluginAuthFailureUniformity(t *testing.T) {
	router := pluginTestRouter(&stubServerResolver{server: knownServer()})
	body := []byte(`{"success":true}`)

	unknownKey := httptest.NewRequest("POST", "/plugin/execute", bytes.NewReader(body))
	unknownKey.Header.Set("X-API-Key", "NO-SUCH-KEY")
	unknownKey.Header.Set("X-Signature", flow.SignBody(body, testSecret))

	badSignature := httptest.NewRequest("POST", "/plugin/execute", bytes.NewReader(body))
	badSignature.Header.Set("X-API-Key", "KNOWN-KEY")
	badSignature.Header.Set("X-Signature", "deadbeef")

	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, unknownKey)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, badSignature)

	assert.Equal(t, http.StatusUnauthorized, w1.Code)
	assert.Equal(t, w1.Code, w2.Code)
	assert.Equal(t, w1.Body.String(), w2.Body.String())
}

func TestPluginAuthSignsQueryParamsOnGET(t *testing.T) {
	router := pluginTestRouter(&stubServerResolver{server: knownServer()})

	// GET requests sign their query parameters serialized as sorted-key JSON.
	payload := []byte(`{"limit":"5"}`)
	req := httptest.NewRequest("GET", "/plugin/pending-orders?limit=5", nil)
	req.Header.Set("X-API-Key", "KNOWN-KEY")
	req.Header.Set("X-Signature", flow.SignBody(payload, testSecret))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPluginAuthRequiresHeaders(t *testing.T) {
	router := pluginTestRouter(&stubServerResolver{server: knownServer()})

	req := httptest.NewRequest("POST", "/plugin/execute", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
