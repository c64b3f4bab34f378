package push

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestCredentials generates a throwaway RSA key and writes a service
// account file pointing token exchange at tokenURI.
func writeTestCredentials(t *testing.T, tokenURI string) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	creds, err := json.Marshal(map[string]string{
		"project_id":   "remo-test",
		"client_email": "remo@remo-test.iam.gserviceaccount.com",
		"private_key":  string(pemKey),
		"token_uri":    tokenURI,
	})
	if err != nil {
		t.Fatalf("marshal credentials: %v", err)
	}

	path := filepath.Join(t.TempDir(), "service-account.json")
	if err := os.WriteFile(path, creds, 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}

func TestFCMClientSend(t *testing.T) {
	var tokenCalls, sendCalls int
	var gotAuth, gotPath string
	var gotMessage map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token":
			tokenCalls++
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if g := r.PostForm.Get("grant_type"); g != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
				t.Errorf("grant_type = %q", g)
			}
			if r.PostForm.Get("assertion") == "" {
				t.Error("assertion missing")
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "ya29.test-token",
				"expires_in":   3600,
			})
		case strings.HasSuffix(r.URL.Path, ":send"):
			sendCalls++
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			var body struct {
				Message map[string]any `json:"message"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			gotMessage = body.Message
			w.Write([]byte(`{"name":"projects/remo-test/messages/1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := NewFCMClient(writeTestCredentials(t, srv.URL+"/token"))
	if err != nil {
		t.Fatalf("NewFCMClient: %v", err)
	}
	client.endpoint = srv.URL

	n := Notification{Title: "Remo Reminder!", Body: "Check HN headline"}
	if err := client.Send(context.Background(), "device-token-1", n); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAuth != "Bearer ya29.test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/v1/projects/remo-test/messages:send" {
		t.Errorf("path = %q", gotPath)
	}
	if tok, _ := gotMessage["token"].(string); tok != "device-token-1" {
		t.Errorf("message token = %q", tok)
	}
	notif, _ := gotMessage["notification"].(map[string]any)
	if notif["title"] != "Remo Reminder!" || notif["body"] != "Check HN headline" {
		t.Errorf("notification = %+v", notif)
	}

	// A second send must reuse the cached access token.
	if err := client.Send(context.Background(), "device-token-1", n); err != nil {
		t.Fatalf("Send again: %v", err)
	}
	if tokenCalls != 1 {
		t.Errorf("token exchanges = %d, want 1", tokenCalls)
	}
	if sendCalls != 2 {
		t.Errorf("sends = %d, want 2", sendCalls)
	}
}

func TestFCMClientSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"status":"NOT_FOUND","message":"Requested entity was not found."}}`))
	}))
	defer srv.Close()

	client, err := NewFCMClient(writeTestCredentials(t, srv.URL+"/token"))
	if err != nil {
		t.Fatalf("NewFCMClient: %v", err)
	}
	client.endpoint = srv.URL

	err = client.Send(context.Background(), "stale-token", Notification{Title: "t", Body: "b"})
	if err == nil {
		t.Fatal("expected send error for 404")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("err = %v, want status in message", err)
	}
}

func TestNewFCMClientBadCredentials(t *testing.T) {
	if _, err := NewFCMClient(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"project_id":"p"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFCMClient(path); err == nil {
		t.Error("expected error for incomplete credentials")
	}
}

func TestDisabledNotifier(t *testing.T) {
	err := Disabled{}.Send(context.Background(), "tok", Notification{})
	if err == nil {
		t.Fatal("disabled notifier must fail")
	}
}
