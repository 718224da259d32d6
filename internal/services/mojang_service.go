// internal/services/mojang_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PabloB07/mcshop/internal/utils"
)

// MojangService resolves minecraft usernames to their canonical UUID at
// checkout, so fulfillment commands target the right account even after a
// name change.
type MojangService struct {
	httpClient *http.Client
	baseURL    string
}

type MojangProfile struct {
	Username  string `json:"username"`
	UUID      string `json:"uuid"`
	AvatarURL string `json:"avatar_url"`
}

func NewMojangService() *MojangService {
	return &MojangService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://api.mojang.com",
	}
}

// ResolveUsername validates a username against Mojang and returns the profile
// with its dashed UUID and a Crafatar avatar URL for the storefront.
func (s *MojangService) ResolveUsername(ctx context.Context, username string) (*MojangProfile, error) {
	if !utils.IsValidMinecraftUsername(username) {
		return nil, fmt.Errorf("invalid minecraft username: %q", username)
	}

	endpoint := fmt.Sprintf("%s/users/profiles/minecraft/%s", s.baseURL, url.PathEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mojang lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mojang answered %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var profile struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("invalid mojang response: %w", err)
	}

	dashed := formatDashedUUID(profile.ID)

	return &MojangProfile{
		Username:  profile.Name,
		UUID:      dashed,
		AvatarURL: fmt.Sprintf("https://crafatar.com/avatars/%s?overlay", dashed),
	}, nil
}

// formatDashedUUID converts Mojang's compact 32-hex id to the dashed form the
// game servers use.
func formatDashedUUID(compact string) string {
	if len(compact) != 32 {
		return compact
	}
	return strings.Join([]string{
		compact[0:8],
		compact[8:12],
		compact[12:16],
		compact[16:20],
		compact[20:32],
	}, "-")
}
