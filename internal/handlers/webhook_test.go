// internal/handlers/webhook_test.go
package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testContext(method, target, contentType, body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if contentType != "" {
		c.Request.Header.Set("Content-Type", contentType)
	}
	return c
}

func TestCollectNotificationParamsFromQuery(t *testing.T) {
	c := testContext("GET", "/webhooks/flow?token=tok-123&status=1", "", "")

	params, err := collectNotificationParams(c)
	assert.NoError(t, err)
	assert.Equal(t, "tok-123", params["token"])
	assert.Equal(t, "1", params["status"])
}

func TestCollectNotificationParamsFromForm(t *testing.T) {
	c := testContext("POST", "/webhooks/flow",
		"application/x-www-form-urlencoded", "token=tok-456&flowOrder=987")

	params, err := collectNotificationParams(c)
	assert.NoError(t, err)
	assert.Equal(t, "tok-456", params["token"])
	assert.Equal(t, "987", params["flowOrder"])
}

func TestCollectNotificationParamsFromJSON(t *testing.T) {
	c := testContext("POST", "/webhooks/flow",
		"application/json", `{"Token":"tok-789","flowOrder":12345,"error":null}`)

	params, err := collectNotificationParams(c)
	assert.NoError(t, err)
	assert.Equal(t, "tok-789", params["Token"])
	assert.Equal(t, "12345", params["flowOrder"])
	assert.Equal(t, "", params["error"])
}

func TestCollectNotificationParamsBodyWinsOverQuery(t *testing.T) {
	c := testContext("POST", "/webhooks/flow?token=from-query",
		"application/x-www-form-urlencoded", "token=from-body")

	params, err := collectNotificationParams(c)
	assert.NoError(t, err)
	assert.Equal(t, "from-body", params["token"])
}

func TestCollectNotificationParamsEmptyBody(t *testing.T) {
	c := testContext("POST", "/webhooks/flow?TOKEN=upper", "application/json", "")

	params, err := collectNotificationParams(c)
	assert.NoError(t, err)
	assert.Equal(t, "upper", params["TOKEN"])
}

func TestStringifyParam(t *testing.T) {
	assert.Equal(t, "plain", stringifyParam("plain"))
	assert.Equal(t, "15000", stringifyParam(float64(15000)))
	assert.Equal(t, "3.5", stringifyParam(3.5))
	assert.Equal(t, "true", stringifyParam(true))
	assert.Equal(t, "", stringifyParam(nil))
}
