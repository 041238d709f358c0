package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/EO-DataHub/eodhp-groupmatrix/models"
	"github.com/golang-jwt/jwt"
)

// DefaultPageSize is the number of group members requested per call.
const DefaultPageSize = 100

// tokenLeeway renews the access token shortly before it expires.
const tokenLeeway = 30 * time.Second

var ErrGroupNotFound = errors.New("group not found")

// KeycloakClient reads group memberships from the Keycloak admin API.
type KeycloakClient struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Realm        string
	PageSize     int
	HTTPClient   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

type TokenResponse struct {
	Access    string `json:"access_token"`
	ExpiresIn int    `json:"expires_in"`
	Scope     string `json:"scope"`
}

type HTTPError struct {
	Message string
	Status  int
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, clientID, clientSecret, realm string) *KeycloakClient {
	return &KeycloakClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Realm:        realm,
		PageSize:     DefaultPageSize,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// GetToken retrieves a Keycloak access token using client_credentials.
func (kc *KeycloakClient) GetToken(ctx context.Context) error {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	return kc.fetchToken(ctx)
}

// accessToken returns a valid access token, fetching a new one when none is
// cached or the cached one is about to expire.
func (kc *KeycloakClient) accessToken(ctx context.Context) (string, error) {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if kc.token == "" || (!kc.expiry.IsZero() && time.Now().Add(tokenLeeway).After(kc.expiry)) {
		if err := kc.fetchToken(ctx); err != nil {
			return "", err
		}
	}
	return kc.token, nil
}

func (kc *KeycloakClient) fetchToken(ctx context.Context) error {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", kc.BaseURL, kc.Realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", kc.ClientID)
	data.Set("client_secret", kc.ClientSecret)

	respBody, _, err := kc.do(ctx, http.MethodPost, tokenURL, "application/x-www-form-urlencoded", []byte(data.Encode()), "")
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	var tokenResponse TokenResponse
	if err := json.Unmarshal(respBody, &tokenResponse); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResponse.Access == "" {
		return errors.New("token response contains no access token")
	}

	kc.token = tokenResponse.Access
	kc.expiry = tokenExpiry(tokenResponse)
	return nil
}

// tokenExpiry prefers the exp claim of a JWT access token and falls back to
// the expires_in field of the token response.
func tokenExpiry(resp TokenResponse) time.Time {
	var claims jwt.StandardClaims
	if _, _, err := new(jwt.Parser).ParseUnverified(resp.Access, &claims); err == nil && claims.ExpiresAt > 0 {
		return time.Unix(claims.ExpiresAt, 0)
	}
	if resp.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

// GetGroup retrieves a group by name from Keycloak, searching sub groups too.
func (kc *KeycloakClient) GetGroup(ctx context.Context, groupName string) (*models.Group, error) {
	endpoint := fmt.Sprintf("%s/admin/realms/%s/groups?search=%s", kc.BaseURL, kc.Realm, url.QueryEscape(groupName))

	respBody, err := kc.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group: %w", err)
	}

	var groups []models.Group
	if err := json.Unmarshal(respBody, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if group := findGroup(groups, groupName); group != nil {
		return group, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, groupName)
}

func findGroup(groups []models.Group, name string) *models.Group {
	for i := range groups {
		if groups[i].Name == name {
			return &groups[i]
		}
		if group := findGroup(groups[i].SubGroups, name); group != nil {
			return group
		}
	}
	return nil
}

// GetGroupMembers retrieves every member of a group, one page at a time.
func (kc *KeycloakClient) GetGroupMembers(ctx context.Context, groupID string) ([]models.User, error) {
	pageSize := kc.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var members []models.User
	for first := 0; ; first += pageSize {
		endpoint := fmt.Sprintf("%s/admin/realms/%s/groups/%s/members?first=%d&max=%d&briefRepresentation=false",
			kc.BaseURL, kc.Realm, groupID, first, pageSize)

		respBody, err := kc.get(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch group members: %w", err)
		}

		var page []models.User
		if err := json.Unmarshal(respBody, &page); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		members = append(members, page...)
		if len(page) < pageSize {
			return members, nil
		}
	}
}

// UsersInGroup returns the members of the named group keyed by username. An
// unknown group has no members.
func (kc *KeycloakClient) UsersInGroup(ctx context.Context, group string) (map[string]models.UserRecord, error) {
	g, err := kc.GetGroup(ctx, group)
	if errors.Is(err, ErrGroupNotFound) {
		return map[string]models.UserRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	members, err := kc.GetGroupMembers(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	users := make(map[string]models.UserRecord, len(members))
	for _, member := range members {
		users[member.Username] = userRecord(member, group)
	}
	return users, nil
}

// userRecord maps a Keycloak user onto directory attributes. Custom
// attributes with several values are joined with a comma.
func userRecord(user models.User, group string) models.UserRecord {
	attributes := make(map[string]string, len(user.Attributes)+5)
	for key, values := range user.Attributes {
		attributes[key] = strings.Join(values, ", ")
	}

	attributes["name"] = strings.TrimSpace(user.FirstName + " " + user.LastName)
	attributes["firstName"] = user.FirstName
	attributes["lastName"] = user.LastName
	attributes["mail"] = user.Email
	attributes["email"] = user.Email

	return models.UserRecord{
		Username:   user.Username,
		Attributes: attributes,
		Groups:     []string{group},
	}
}

func (kc *KeycloakClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	token, err := kc.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	respBody, _, err := kc.do(ctx, http.MethodGet, endpoint, "application/json", nil, token)

	// a rejected token is renewed once
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized {
		kc.dropToken(token)

		token, err = kc.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		respBody, _, err = kc.do(ctx, http.MethodGet, endpoint, "application/json", nil, token)
	}
	return respBody, err
}

// dropToken forgets token unless another request already replaced it.
func (kc *KeycloakClient) dropToken(token string) {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if kc.token == token {
		kc.token = ""
		kc.expiry = time.Time{}
	}
}

// Helper function for making HTTP requests to keycloak API.
func (kc *KeycloakClient) do(ctx context.Context, method, endpoint, contentType string, body []byte, token string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := kc.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return respBody, resp.StatusCode, &HTTPError{
			Message: fmt.Sprintf("error response: status %d, body: %s", resp.StatusCode, string(respBody)),
			Status:  resp.StatusCode,
		}
	}

	return respBody, resp.StatusCode, nil
}
