package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenPath = "/realms/test-realm/protocol/openid-connect/token"

// newKeycloakServer serves a token endpoint plus the given admin API handler.
func newKeycloakServer(t *testing.T, tokens *int32, admin http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			atomic.AddInt32(tokens, 1)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
			assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
			_, _ = w.Write([]byte(`{"access_token": "mocked-access-token", "expires_in": 300}`))
			return
		}

		assert.Equal(t, "Bearer mocked-access-token", r.Header.Get("Authorization"))
		admin(w, r)
	}))
}

func TestGetToken(t *testing.T) {
	var tokens int32
	server := newKeycloakServer(t, &tokens, nil)
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")
	err := client.GetToken(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "mocked-access-token", client.token)
	assert.WithinDuration(t, time.Now().Add(300*time.Second), client.expiry, 5*time.Second)
}

func TestGetToken_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "unauthorized_client"}`))
	}))
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")
	err := client.GetToken(context.Background())

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
}

func TestTokenExpiry_PrefersJWTClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{ExpiresAt: exp.Unix()}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	assert.Equal(t, exp.Unix(), tokenExpiry(TokenResponse{Access: signed, ExpiresIn: 10}).Unix())
}

func TestTokenExpiry_Unknown(t *testing.T) {
	assert.True(t, tokenExpiry(TokenResponse{Access: "opaque"}).IsZero())
}

func TestAccessToken_ReusesValidToken(t *testing.T) {
	var tokens int32
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")

	_, err := client.GetGroupMembers(context.Background(), "group-id")
	require.NoError(t, err)
	_, err = client.GetGroupMembers(context.Background(), "group-id")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens))
}

func TestAccessToken_RenewsExpiredToken(t *testing.T) {
	var tokens int32
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")
	client.token = "stale"
	client.expiry = time.Now().Add(-time.Minute)

	_, err := client.GetGroupMembers(context.Background(), "group-id")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens))
	assert.Equal(t, "mocked-access-token", client.token)
}

func TestGet_RenewsRejectedToken(t *testing.T) {
	var tokens, calls int32
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id": "1", "username": "user1"}]`))
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")
	client.token = "mocked-access-token"

	members, err := client.GetGroupMembers(context.Background(), "group-id")
	require.NoError(t, err)
	require.Len(t, members, 1)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens))
}

func TestGet_RejectedTwice(t *testing.T) {
	var tokens int32
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")

	_, err := client.GetGroupMembers(context.Background(), "group-id")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokens))
}

func TestGetGroup(t *testing.T) {
	var tokens int32
	mockResponse := `[{"id": "parent-id", "name": "team", "subGroups": [{"id": "group-id", "name": "test-group"}]}]`
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/realms/test-realm/groups", r.URL.Path)
		assert.Equal(t, "test-group", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(mockResponse))
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")

	group, err := client.GetGroup(context.Background(), "test-group")
	require.NoError(t, err)
	assert.Equal(t, "group-id", group.ID)
	assert.Equal(t, "test-group", group.Name)
}

func TestGetGroup_NotFound(t *testing.T) {
	var tokens int32
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "other-id", "name": "test-group-2"}]`))
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")

	_, err := client.GetGroup(context.Background(), "test-group")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestGetGroupMembers_Paginates(t *testing.T) {
	var tokens int32
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/realms/test-realm/groups/group-id/members", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("briefRepresentation"))
		assert.Equal(t, "2", r.URL.Query().Get("max"))

		switch first, _ := strconv.Atoi(r.URL.Query().Get("first")); first {
		case 0:
			_, _ = w.Write([]byte(`[{"id": "1", "username": "user1"}, {"id": "2", "username": "user2"}]`))
		case 2:
			_, _ = w.Write([]byte(`[{"id": "3", "username": "user3"}]`))
		default:
			t.Errorf("unexpected page offset %d", first)
		}
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")
	client.PageSize = 2

	members, err := client.GetGroupMembers(context.Background(), "group-id")
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "user1", members[0].Username)
	assert.Equal(t, "user3", members[2].Username)
}

func TestUsersInGroup(t *testing.T) {
	var tokens int32
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/realms/test-realm/groups":
			_, _ = w.Write([]byte(`[{"id": "group-id", "name": "editors"}]`))
		case "/admin/realms/test-realm/groups/group-id/members":
			_, _ = w.Write([]byte(`[{
				"id": "1", "username": "alice", "firstName": "Alice", "lastName": "Liddell",
				"email": "alice@example.com", "attributes": {"phone": ["123", "456"], "name": ["custom"]}
			}]`))
		default:
			http.NotFound(w, r)
		}
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")

	users, err := client.UsersInGroup(context.Background(), "editors")
	require.NoError(t, err)
	require.Contains(t, users, "alice")

	alice := users["alice"]
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, "Alice Liddell", alice.Attribute("name"))
	assert.Equal(t, "alice@example.com", alice.Attribute("mail"))
	assert.Equal(t, "alice@example.com", alice.Attribute("email"))
	assert.Equal(t, "123, 456", alice.Attribute("phone"))
	assert.Equal(t, []string{"editors"}, alice.Groups)
}

func TestUsersInGroup_UnknownGroup(t *testing.T) {
	var tokens int32
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")

	users, err := client.UsersInGroup(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUsersInGroup_ServerError(t *testing.T) {
	var tokens int32
	server := newKeycloakServer(t, &tokens, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprint(w, "boom")
	})
	defer server.Close()

	client := NewKeycloakClient(server.URL, "client-id", "client-secret", "test-realm")

	_, err := client.UsersInGroup(context.Background(), "editors")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
}
