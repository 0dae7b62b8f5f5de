package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"childcare-registration/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntrospectionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realms/childcare/protocol/openid-connect/token/introspect", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "registration", r.PostForm.Get("client_id"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestValidateToken_Active(t *testing.T) {
	srv := newIntrospectionServer(t, http.StatusOK,
		`{"active": true, "username": "caseworker1", "realm_access": {"roles": ["caseworker"]}}`)

	client := NewKeycloakClient(srv.URL+"/", "childcare", "registration", "secret", time.Second)
	info, err := client.ValidateToken(context.Background(), "token")

	require.NoError(t, err)
	assert.Equal(t, "caseworker1", info.Username)
	assert.True(t, info.HasRole("caseworker"))
	assert.False(t, info.HasRole("admin"))
}

func TestValidateToken_Inactive(t *testing.T) {
	srv := newIntrospectionServer(t, http.StatusOK, `{"active": false}`)

	client := NewKeycloakClient(srv.URL, "childcare", "registration", "secret", time.Second)
	_, err := client.ValidateToken(context.Background(), "token")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.AsStandardError(err).Code)
}

func TestValidateToken_ServerError(t *testing.T) {
	srv := newIntrospectionServer(t, http.StatusServiceUnavailable, `down`)

	client := NewKeycloakClient(srv.URL, "childcare", "registration", "secret", time.Second)
	_, err := client.ValidateToken(context.Background(), "token")

	require.Error(t, err)
	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrorCode("EXTERNAL_SERVICE_ERROR"), stdErr.Code)
	assert.True(t, stdErr.Retryable)
}
