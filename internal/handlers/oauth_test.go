package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bullshark-strava-sync/internal/config"
	"bullshark-strava-sync/internal/database"
	"bullshark-strava-sync/internal/oauth"
	"bullshark-strava-sync/internal/strava"
)

func setupOAuthHandlerTest(t *testing.T, secret string) (http.Handler, *database.DB, *oauth.Manager) {
	t.Helper()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "test_code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"Bad Request"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"token_type":"Bearer","access_token":"connected_access","refresh_token":"connected_refresh","expires_at":4102444800,"expires_in":21600}`)
	}))
	t.Cleanup(tokenServer.Close)

	db, err := database.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		StravaClientID:     "test_client_id",
		StravaClientSecret: "test_client_secret",
		StravaClubID:       "1234",
		StravaAPIURL:       tokenServer.URL + "/api/v3",
		StravaTokenURL:     tokenServer.URL + "/oauth/token",
		StravaAuthURL:      "https://www.strava.com/oauth/authorize",
	}

	stravaClient := strava.NewClient(cfg)
	oauthManager := oauth.NewManager(stravaClient, oauth.NewTokenCache(db, stravaClient), "admin")
	handler := NewRouter(Routes{OAuth: NewOAuthHandler(oauthManager, secret)})

	return handler, db, oauthManager
}

func TestHandleAuthStart_Success(t *testing.T) {
	handler, _, _ := setupOAuthHandlerTest(t, "")

	req := httptest.NewRequest(http.MethodGet, "http://localhost:4101/oauth-start", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("Expected status 307, got %d", w.Code)
	}

	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "https://www.strava.com/oauth/authorize") {
		t.Fatalf("Expected redirect to Strava, got %s", location)
	}

	if !strings.Contains(location, "client_id=test_client_id") {
		t.Error("Expected client_id in redirect URL")
	}
	if !strings.Contains(location, "redirect_uri="+url.QueryEscape("http://localhost:4101/oauth-callback")) {
		t.Errorf("Expected redirect_uri in redirect URL, got %s", location)
	}
	if !strings.Contains(location, "state=") {
		t.Error("Expected state parameter in redirect URL")
	}
}

func TestHandleAuthStart_RequiresKey(t *testing.T) {
	handler, _, _ := setupOAuthHandlerTest(t, "s3cret")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth-start?key=wrong", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth-start?key=s3cret", nil))
	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("Expected status 307, got %d", w.Code)
	}
}

func TestHandleAuthStart_WrongMethod(t *testing.T) {
	handler, _, _ := setupOAuthHandlerTest(t, "")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/oauth-start", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestHandleCallback_Success(t *testing.T) {
	handler, db, oauthManager := setupOAuthHandlerTest(t, "")

	_, state, err := oauthManager.GenerateAuthURL("http://localhost:4101/oauth-callback")
	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth-callback?code=test_code&state="+url.QueryEscape(state), nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "admin") {
		t.Error("Expected success page to name the identity")
	}

	cred, err := db.GetCredential(context.Background(), "admin")
	if err != nil {
		t.Fatalf("Failed to read credential: %v", err)
	}
	if cred == nil || cred.AccessToken != "connected_access" || cred.RefreshToken != "connected_refresh" {
		t.Errorf("Expected connected credential to be stored, got %+v", cred)
	}
}

func TestHandleCallback_MissingParameters(t *testing.T) {
	handler, _, _ := setupOAuthHandlerTest(t, "")

	tests := []struct {
		name  string
		query string
	}{
		{"missing code", "?state=test_state"},
		{"missing state", "?code=test_code"},
		{"missing both", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth-callback"+tt.query, nil))

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestHandleCallback_ErrorParameter(t *testing.T) {
	handler, _, _ := setupOAuthHandlerTest(t, "")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth-callback?error=access_denied", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "access_denied") {
		t.Error("Expected error message to include 'access_denied'")
	}
}

func TestHandleCallback_InvalidState(t *testing.T) {
	handler, _, _ := setupOAuthHandlerTest(t, "")

	// Try to use a state that was never generated
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth-callback?code=test_code&state=invalid_state", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid or expired") {
		t.Error("Expected error message about invalid state")
	}
}

func TestHandleCallback_ExchangeFailure(t *testing.T) {
	handler, db, oauthManager := setupOAuthHandlerTest(t, "")

	_, state, err := oauthManager.GenerateAuthURL("http://localhost:4101/oauth-callback")
	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth-callback?code=invalid_code&state="+url.QueryEscape(state), nil))

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}

	cred, err := db.GetCredential(context.Background(), "admin")
	if err != nil {
		t.Fatalf("Failed to read credential: %v", err)
	}
	if cred != nil {
		t.Errorf("Expected no credential after failed exchange, got %+v", cred)
	}
}

func TestHandleCallback_ConsumedState(t *testing.T) {
	handler, _, oauthManager := setupOAuthHandlerTest(t, "")

	_, state, err := oauthManager.GenerateAuthURL("http://localhost:4101/oauth-callback")
	if err != nil {
		t.Fatalf("Failed to generate auth URL: %v", err)
	}

	// First use fails at token exchange but consumes the state
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/oauth-callback?code=invalid_code&state="+url.QueryEscape(state), nil))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth-callback?code=test_code&state="+url.QueryEscape(state), nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid or expired") {
		t.Error("Expected error message about invalid/expired state for reused state")
	}
}
