// internal/flow/client_test.go
package flow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL(Config{APIKey: "ak", SecretKey: "sk"}, srv.URL)
}

func TestCreatePaymentOrder(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/payment/create", r.URL.Path)
		assert.Equal(t, "ORDER-1700000000", r.PostForm.Get("commerceOrder"))
		assert.Equal(t, "15000", r.PostForm.Get("amount"))
		assert.Equal(t, "CLP", r.PostForm.Get("currency"))

		// The request must carry a valid signature over its own params.
		params := map[string]string{}
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
		assert.True(t, Verify(params, r.PostForm.Get("s"), "sk"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok_abc","url":"https://sandbox.flow.cl/app/web/pay.php","flowOrder":123}`))
	})

	resp, err := client.CreatePaymentOrder(context.Background(), PaymentOrder{
		CommerceOrder: "ORDER-1700000000",
		Subject:       "Rango VIP",
		Amount:        15000,
		Email:         "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok_abc", resp.Token)
	assert.Equal(t, int64(123), resp.FlowOrder)
	assert.Equal(t, "https://sandbox.flow.cl/app/web/pay.php?token=tok_abc", resp.RedirectURL())
}

func TestCreatePaymentOrderInvalidAmount(t *testing.T) {
	client := NewClient(Config{APIKey: "ak", SecretKey: "sk"})

	_, err := client.CreatePaymentOrder(context.Background(), PaymentOrder{
		CommerceOrder: "ORDER-1",
		Subject:       "x",
		Amount:        0,
		Email:         "a@b.c",
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreatePaymentOrderPartialResponse(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"tok_abc"}`))
	})

	_, err := client.CreatePaymentOrder(context.Background(), PaymentOrder{
		CommerceOrder: "ORDER-1", Subject: "x", Amount: 1000, Email: "a@b.c",
	})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestCreatePaymentOrderAuthError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":1,"message":"invalid apiKey"}`))
	})

	_, err := client.CreatePaymentOrder(context.Background(), PaymentOrder{
		CommerceOrder: "ORDER-1", Subject: "x", Amount: 1000, Email: "a@b.c",
	})
	assert.ErrorIs(t, err, ErrAuth)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid apiKey", apiErr.Message)
}

func TestCreatePaymentOrderBadRequest(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":1609,"message":"commerceOrder already used"}`))
	})

	_, err := client.CreatePaymentOrder(context.Background(), PaymentOrder{
		CommerceOrder: "ORDER-1", Subject: "x", Amount: 1000, Email: "a@b.c",
	})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestGetPaymentStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/getStatus", r.URL.Path)
		assert.Equal(t, "tok_abc", r.URL.Query().Get("token"))

		params := map[string]string{}
		for k := range r.URL.Query() {
			params[k] = r.URL.Query().Get(k)
		}
		assert.True(t, Verify(params, r.URL.Query().Get("s"), "sk"))

		w.Write([]byte(`{
			"status": 2,
			"flowOrder": 123,
			"commerceOrder": "ORDER-1700000000",
			"amount": 15000,
			"currency": "CLP",
			"paymentData": {"date": "2024-01-15 10:30:00", "media": 1, "amount": 15000}
		}`))
	})

	status, err := client.GetPaymentStatus(context.Background(), "tok_abc")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, status.Status)
	assert.Equal(t, "ORDER-1700000000", status.CommerceOrder)
	assert.True(t, status.Settled(), "settlement record outranks the status code")
}

func TestGetPaymentStatusNotSettled(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"flowOrder":1,"commerceOrder":"ORDER-2","paymentData":{"date":""}}`))
	})

	status, err := client.GetPaymentStatus(context.Background(), "tok_xyz")
	require.NoError(t, err)
	assert.False(t, status.Settled())
}

func TestCreateRefund(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/refund/create", r.URL.Path)
		assert.Equal(t, "5000", r.PostForm.Get("amount"))
		w.Write([]byte(`{"refundOrder":9,"token":"rtok","status":0,"amount":5000}`))
	})

	refund, err := client.CreateRefund(context.Background(), RefundRequest{
		Token:  "tok_abc",
		Amount: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), refund.RefundOrder)
}
