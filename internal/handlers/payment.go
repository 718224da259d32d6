// internal/handlers/payment.go
package handlers

import (
	"errors"
	"html"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PabloB07/mcshop/internal/flow"
	"github.com/PabloB07/mcshop/internal/services"
	"github.com/PabloB07/mcshop/internal/utils"
)

type PaymentHandler struct {
	paymentService  *services.PaymentService
	frontendBaseURL string
}

func NewPaymentHandler(paymentService *services.PaymentService, frontendBaseURL string) *PaymentHandler {
	return &PaymentHandler{
		paymentService:  paymentService,
		frontendBaseURL: frontendBaseURL,
	}
}

// CreatePayment registers a pending order with the gateway and returns the
// redirect URL the frontend sends the payer to.
//
// POST /payments/:orderId
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), orderID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, "Order not found")
		case errors.Is(err, services.ErrForbidden):
			utils.ForbiddenResponse(c, "This order belongs to another user")
		case errors.Is(err, flow.ErrInvalidAmount), errors.Is(err, flow.ErrBadRequest):
			utils.BadRequestResponse(c, err.Error(), nil)
		default:
			utils.InternalErrorResponse(c, "Failed to create payment")
		}
		return
	}

	utils.CreatedResponse(c, payment)
}

// GetPaymentStatus reports the gateway's view of a payment, used by the
// return page while the webhook reconciles in the background.
//
// GET /payments/:orderId/status
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	status, err := h.paymentService.GetPaymentStatus(c.Request.Context(), orderID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, "Order not found")
		case errors.Is(err, services.ErrForbidden):
			utils.ForbiddenResponse(c, "This order belongs to another user")
		default:
			utils.InternalErrorResponse(c, "Failed to query payment status")
		}
		return
	}

	utils.SuccessResponse(c, status)
}

// FinalizeRedirect terminates the gateway's return leg. After payment the
// gateway drives the payer's browser in a POST to urlReturn and expects an
// HTML response, so this emits a self-forwarding page that lands the payer on
// the frontend result screens with the notification's parameters attached.
//
// GET|POST /payments/finalize
func (h *PaymentHandler) FinalizeRedirect(c *gin.Context) {
	params, err := collectNotificationParams(c)
	if err != nil {
		h.finalizeHTML(c, "/checkout/error", url.Values{"error": {"No se pudo procesar el pago"}})
		return
	}

	q := url.Values{}
	if token, err := services.ExtractToken(params); err == nil {
		q.Set("token", token)
	}

	if gatewayErr := params["error"]; gatewayErr != "" {
		logrus.WithFields(logrus.Fields{
			"error": gatewayErr,
			"token": q.Get("token"),
		}).Error("Payment finalization returned an error")
		q.Set("error", gatewayErr)
		h.finalizeHTML(c, "/checkout/error", q)
		return
	}

	if status := params["status"]; status != "" {
		q.Set("status", status)
	}
	if flowOrder := params["flowOrder"]; flowOrder != "" {
		q.Set("flowOrder", flowOrder)
	}
	h.finalizeHTML(c, "/checkout/success", q)
}

func (h *PaymentHandler) finalizeHTML(c *gin.Context, path string, q url.Values) {
	target := h.frontendBaseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	escaped := html.EscapeString(target)

	page := `<!DOCTYPE html>
<html>
<head>
<meta http-equiv="refresh" content="0;url=` + escaped + `">
</head>
<body>
<p>Redirigiendo...</p>
<a href="` + escaped + `">Haz clic aquí si no eres redirigido automáticamente</a>
</body>
</html>`

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
