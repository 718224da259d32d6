// internal/handlers/webhook.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PabloB07/mcshop/internal/services"
	"github.com/PabloB07/mcshop/internal/utils"
)

type WebhookHandler struct {
	webhookService *services.WebhookService
}

func NewWebhookHandler(webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// HandleFlowConfirmation is the payment gateway's notification endpoint.
// The gateway may deliver via GET or POST, with the token in a JSON body, a
// form body or the query string, so all three are collected before lookup.
//
// GET|POST /webhooks/flow
func (h *WebhookHandler) HandleFlowConfirmation(c *gin.Context) {
	params, err := collectNotificationParams(c)
	if err != nil {
		utils.BadRequestResponse(c, "Unreadable notification payload", nil)
		return
	}

	token, err := services.ExtractToken(params)
	if err != nil {
		utils.BadRequestResponse(c, "Missing payment token", nil)
		return
	}

	result, err := h.webhookService.Reconcile(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, "Order not found for payment token")
		default:
			logrus.WithFields(logrus.Fields{
				"token": token,
				"error": err,
			}).Error("Payment reconciliation failed")
			utils.InternalErrorResponse(c, "Reconciliation failed")
		}
		return
	}

	// Cancellations and rejections are successful reconciliations; the
	// gateway only needs to know the notification was processed.
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"status":         result.Status,
		"order_id":       result.OrderID,
		"commerce_order": result.CommerceOrder,
	})
}

// collectNotificationParams flattens the notification's query string and body
// into one map. Body fields win over query fields of the same name.
func collectNotificationParams(c *gin.Context) (map[string]string, error) {
	params := map[string]string{}

	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	if c.Request.Method == http.MethodGet || c.Request.Body == nil {
		return params, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return params, nil
	}

	contentType := c.ContentType()
	switch {
	case strings.Contains(contentType, "application/json"):
		var decoded map[string]interface{}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, err
		}
		for key, value := range decoded {
			params[key] = stringifyParam(value)
		}

	default:
		// Flow sends application/x-www-form-urlencoded by default.
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		for key, values := range form {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
	}

	return params, nil
}

func stringifyParam(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}
