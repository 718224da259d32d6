// internal/services/minecraft_dispatch_test.go
package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloB07/mcshop/internal/flow"
	"github.com/PabloB07/mcshop/internal/models"
)

func dispatchService() *MinecraftService {
	return &MinecraftService{httpClient: &http.Client{Timeout: 2 * time.Second}}
}

func TestApplyItemGrantRouting(t *testing.T) {
	s := dispatchService()
	mo := &models.MinecraftOrder{MinecraftUsername: "Steve", MinecraftUUID: "uuid-1"}

	// Each product type without its template is rejected before any dispatch.
	for _, productType := range []models.ProductType{
		models.ProductTypeRank,
		models.ProductTypeItem,
		models.ProductTypeMoney,
	} {
		item := &models.OrderItem{Product: models.Product{ProductType: productType}}
		err := s.applyItemGrant(context.Background(), mo, item)
		assert.Error(t, err, "%s without a template should fail", productType)
	}

	// Plugin products have no server-side commands.
	item := &models.OrderItem{Product: models.Product{ProductType: models.ProductTypePlugin}}
	assert.NoError(t, s.applyItemGrant(context.Background(), mo, item))
}

func TestPushCommandSignsAndParses(t *testing.T) {
	const secret = "push-secret"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		assert.Equal(t, "srv-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, flow.SignBody(body, secret), r.Header.Get("X-Signature"))

		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "give Steve diamond 1", payload["command"])
		assert.Equal(t, "Steve", payload["username"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"response":"executed"}`))
	}))
	defer ts.Close()

	s := dispatchService()
	server := &models.MinecraftServer{Name: "lobby", WebhookURL: ts.URL, APIKey: "srv-key", APISecret: secret}
	mo := &models.MinecraftOrder{MinecraftUsername: "Steve", MinecraftUUID: "uuid-1"}
	record := &models.ExecutedCommand{Command: "give Steve diamond 1", CommandType: models.CommandTypeConsole}

	result, err := s.pushCommand(context.Background(), server, mo, record)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "executed", result.Response)
}

func TestPushCommandServerRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"unknown item"}`))
	}))
	defer ts.Close()

	s := dispatchService()
	server := &models.MinecraftServer{Name: "lobby", WebhookURL: ts.URL, APIKey: "k", APISecret: "s"}
	mo := &models.MinecraftOrder{MinecraftUsername: "Steve"}
	record := &models.ExecutedCommand{Command: "give Steve nothing 1"}

	result, err := s.pushCommand(context.Background(), server, mo, record)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "unknown item", result.Error)
}

func TestPushCommandNon200IsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := dispatchService()
	server := &models.MinecraftServer{Name: "lobby", WebhookURL: ts.URL, APIKey: "k", APISecret: "s"}
	mo := &models.MinecraftOrder{MinecraftUsername: "Steve"}
	record := &models.ExecutedCommand{Command: "say hi"}

	_, err := s.pushCommand(context.Background(), server, mo, record)
	assert.Error(t, err)
}

func TestPushCommandNoWebhookURL(t *testing.T) {
	s := dispatchService()
	server := &models.MinecraftServer{Name: "lobby"}
	mo := &models.MinecraftOrder{MinecraftUsername: "Steve"}

	_, err := s.pushCommand(context.Background(), server, mo, &models.ExecutedCommand{Command: "say hi"})
	assert.ErrorIs(t, err, ErrNoDeliveryChannel)
}
