package push

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	fcmScope     = "https://www.googleapis.com/auth/firebase.messaging"
	fcmEndpoint  = "https://fcm.googleapis.com"
	tokenExpiry  = time.Hour
	tokenLeeway  = time.Minute
	httpTimeout  = 15 * time.Second
	maxErrorBody = 2048
)

// serviceAccount is the subset of a Firebase service account key file that
// token signing needs.
type serviceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// FCMClient sends notifications through the FCM HTTP v1 API, minting OAuth2
// access tokens from a service account key.
type FCMClient struct {
	client   *http.Client
	endpoint string
	account  serviceAccount
	key      *rsa.PrivateKey

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewFCMClient loads the service account key at credentialsPath and prepares
// a client for the project it names.
func NewFCMClient(credentialsPath string) (*FCMClient, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var acct serviceAccount
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if acct.ProjectID == "" || acct.ClientEmail == "" || acct.PrivateKey == "" {
		return nil, fmt.Errorf("credentials %s: missing project_id, client_email, or private_key", credentialsPath)
	}
	if acct.TokenURI == "" {
		acct.TokenURI = "https://oauth2.googleapis.com/token"
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(acct.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &FCMClient{
		client:   &http.Client{Timeout: httpTimeout},
		endpoint: fcmEndpoint,
		account:  acct,
		key:      key,
	}, nil
}

// Send delivers a notification to the device identified by token.
func (c *FCMClient) Send(ctx context.Context, token string, n Notification) error {
	access, err := c.accessTokenFor(ctx)
	if err != nil {
		return fmt.Errorf("fcm auth: %w", err)
	}

	payload := map[string]any{
		"message": map[string]any{
			"token": token,
			"notification": map[string]string{
				"title": n.Title,
				"body":  n.Body,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	sendURL := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.endpoint, c.account.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("fcm send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// accessTokenFor returns a cached OAuth2 access token, exchanging a signed
// JWT assertion for a fresh one when the cache is stale.
func (c *FCMClient) accessTokenFor(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenLeeway)) {
		return c.accessToken, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.account.ClientEmail,
		"scope": fcmScope,
		"aud":   c.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenExpiry).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.account.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("token exchange: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token exchange: empty access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
