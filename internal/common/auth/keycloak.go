// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"childcare-registration/internal/common/errors"
	commonhttp "childcare-registration/internal/common/http"
)

// KeycloakClient introspects case-worker access tokens.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *commonhttp.Client
}

// TokenInfo holds the fields of the introspection response we rely on.
type TokenInfo struct {
	Active      bool   `json:"active"`
	Scope       string `json:"scope,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Exp         int64  `json:"exp,omitempty"`
	Sub         string `json:"sub,omitempty"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func (t *TokenInfo) HasRole(role string) bool {
	for _, r := range t.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string, timeout time.Duration) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   commonhttp.NewClient(timeout),
	}
}

// ValidateToken checks that an access token is active via the realm's
// introspection endpoint.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	resp, err := k.httpClient.PostForm(ctx, introspectURL, data)
	if err != nil {
		return nil, errors.NewExternalServiceError("keycloak", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		stdErr := errors.NewExternalServiceError("keycloak",
			fmt.Errorf("introspection returned %d: %s", resp.StatusCode, string(body)))
		stdErr.Retryable = commonhttp.IsTransientStatus(resp.StatusCode)
		return nil, stdErr
	}

	var tokenInfo TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.NewExternalServiceError("keycloak", fmt.Errorf("decode introspection response: %w", err))
	}

	if !tokenInfo.Active {
		return nil, errors.NewUnauthorizedError("token is expired, revoked or malformed")
	}

	return &tokenInfo, nil
}
