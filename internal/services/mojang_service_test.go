// internal/services/mojang_service_test.go
package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/profiles/minecraft/Notch", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"069a79f444e94726a5befca90e38aaf5","name":"Notch"}`))
	}))
	defer server.Close()

	svc := NewMojangService()
	svc.baseURL = server.URL

	profile, err := svc.ResolveUsername(context.Background(), "Notch")
	assert.NoError(t, err)
	assert.Equal(t, "Notch", profile.Username)
	assert.Equal(t, "069a79f4-44e9-4726-a5be-fca90e38aaf5", profile.UUID)
	assert.Contains(t, profile.AvatarURL, "crafatar.com/avatars/069a79f4-44e9-4726-a5be-fca90e38aaf5")
}

func TestResolveUsernameNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewMojangService()
	svc.baseURL = server.URL

	_, err := svc.ResolveUsername(context.Background(), "NoSuchPlayer")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveUsernameRejectsInvalidNames(t *testing.T) {
	svc := NewMojangService()

	for _, name := range []string{"", "ab", "way_too_long_for_minecraft", "bad name", "semi;colon"} {
		_, err := svc.ResolveUsername(context.Background(), name)
		assert.Error(t, err, "username %q should be rejected locally", name)
	}
}

func TestFormatDashedUUID(t *testing.T) {
	assert.Equal(t,
		"069a79f4-44e9-4726-a5be-fca90e38aaf5",
		formatDashedUUID("069a79f444e94726a5befca90e38aaf5"))

	// Anything that is not 32 hex chars passes through untouched.
	assert.Equal(t, "not-a-uuid", formatDashedUUID("not-a-uuid"))
}
