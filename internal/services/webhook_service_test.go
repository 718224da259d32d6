// internal/services/webhook_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PabloB07/mcshop/internal/flow"
	"github.com/PabloB07/mcshop/internal/models"
)

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name   string
		params map[string]string
		want   string
	}{
		{"lowercase", map[string]string{"token": "abc"}, "abc"},
		{"capitalized", map[string]string{"Token": "def"}, "def"},
		{"uppercase", map[string]string{"TOKEN": "ghi"}, "ghi"},
		{"lowercase wins over variants", map[string]string{"token": "low", "TOKEN": "up"}, "low"},
		{"ignores unrelated fields", map[string]string{"status": "1", "token": "xyz"}, "xyz"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractToken(tc.params)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractTokenMissing(t *testing.T) {
	_, err := ExtractToken(map[string]string{"status": "1", "flowOrder": "42"})
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = ExtractToken(map[string]string{"token": ""})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestDetermineOrderStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code int
		want models.OrderStatus
	}{
		{flow.StatusPending, models.OrderStatusPending},
		{flow.StatusPaid, models.OrderStatusPaid},
		{flow.StatusCancelled, models.OrderStatusCancelled},
		{flow.StatusRejected, models.OrderStatusRejected},
		{99, models.OrderStatusPending}, // unknown codes stay pending
	}

	for _, tc := range cases {
		got := determineOrderStatus(&flow.PaymentStatus{Status: tc.code})
		assert.Equal(t, tc.want, got, "status code %d", tc.code)
	}
}

func TestDetermineOrderStatusSettlementWins(t *testing.T) {
	// The gateway can report cancelled while the funds actually settled; the
	// settlement record has to win over the numeric code.
	status := &flow.PaymentStatus{
		Status:      flow.StatusCancelled,
		PaymentData: &flow.PaymentData{Date: "2024-03-01 10:22:15"},
	}

	assert.Equal(t, models.OrderStatusPaid, determineOrderStatus(status))
}

func TestDetermineOrderStatusEmptySettlementDate(t *testing.T) {
	// A settlement record without a date is not proof of payment.
	status := &flow.PaymentStatus{
		Status:      flow.StatusCancelled,
		PaymentData: &flow.PaymentData{},
	}

	assert.Equal(t, models.OrderStatusCancelled, determineOrderStatus(status))
}

func TestOrderStatusTerminality(t *testing.T) {
	assert.False(t, models.OrderStatusPending.IsTerminal())
	assert.True(t, models.OrderStatusPaid.IsTerminal())
	assert.True(t, models.OrderStatusCancelled.IsTerminal())
	assert.True(t, models.OrderStatusRejected.IsTerminal())
}
