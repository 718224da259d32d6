// internal/handlers/payment_test.go
package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func finalizeRequest(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		c.Request.Header.Set("Content-Type", contentType)
	}

	h := NewPaymentHandler(nil, "https://shop.example.com")
	h.FinalizeRedirect(c)
	return w
}

func TestFinalizeRedirectSuccess(t *testing.T) {
	w := finalizeRequest(t, "POST", "/payments/finalize",
		"application/x-www-form-urlencoded", "token=tok-123&status=1&flowOrder=987")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, "https://shop.example.com/checkout/success")
	assert.Contains(t, body, "token=tok-123")
	assert.Contains(t, body, "flowOrder=987")
}

func TestFinalizeRedirectGatewayError(t *testing.T) {
	w := finalizeRequest(t, "POST", "/payments/finalize",
		"application/x-www-form-urlencoded", "token=tok-123&error=pago+rechazado")

	assert.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "https://shop.example.com/checkout/error")
	assert.Contains(t, body, "token=tok-123")
	assert.NotContains(t, body, "/checkout/success")
}

func TestFinalizeRedirectQueryDelivery(t *testing.T) {
	w := finalizeRequest(t, "GET", "/payments/finalize?token=tok-get", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://shop.example.com/checkout/success?token=tok-get")
}

func TestFinalizeRedirectWithoutToken(t *testing.T) {
	w := finalizeRequest(t, "POST", "/payments/finalize",
		"application/x-www-form-urlencoded", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://shop.example.com/checkout/success")
}
