package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"bullshark-strava-sync/internal/apierr"
	"bullshark-strava-sync/internal/oauth"
)

// OAuthHandler handles the connect flow that seeds the admin credential
type OAuthHandler struct {
	oauthManager *oauth.Manager
	secret       string
	logger       *slog.Logger
}

// NewOAuthHandler creates a new OAuth handler. When secret is set the
// start endpoint requires it as the key query parameter.
func NewOAuthHandler(oauthManager *oauth.Manager, secret string) *OAuthHandler {
	return &OAuthHandler{
		oauthManager: oauthManager,
		secret:       secret,
		logger:       slog.Default(),
	}
}

// HandleAuthStart initiates the OAuth flow by redirecting to Strava
func (h *OAuthHandler) HandleAuthStart(w http.ResponseWriter, r *http.Request) {
	if !secretMatches(h.secret, r.URL.Query().Get("key")) {
		writeError(w, h.logger, apierr.New(apierr.KindUnauthorized, "invalid key"))
		return
	}

	// Strava redirects back to whichever host served this request
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	redirectURI := fmt.Sprintf("%s://%s/oauth-callback", scheme, r.Host)

	authURL, _, err := h.oauthManager.GenerateAuthURL(redirectURI)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("Starting OAuth flow", "redirect_uri", redirectURI)

	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

var connectedPage = template.Must(template.New("connected").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Strava connected</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 80px">
	<h1>Strava connected</h1>
	<p>Stored the club feed credential for <code>{{.}}</code>. The next ingestion run will use it.</p>
</body>
</html>
`))

// HandleCallback exchanges the authorization code Strava redirects back with
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if denied := q.Get("error"); denied != "" {
		h.logger.Warn("OAuth authorization denied", "error", denied)
		writeError(w, h.logger, apierr.New(apierr.KindBadRequest, "authorization failed: %s", denied))
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		writeError(w, h.logger, apierr.New(apierr.KindBadRequest, "missing code or state parameter"))
		return
	}

	identity, err := h.oauthManager.HandleCallback(r.Context(), code, state)
	if errors.Is(err, oauth.ErrInvalidState) {
		writeError(w, h.logger, apierr.New(apierr.KindBadRequest, "Invalid or expired authorization request, please start again"))
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("OAuth flow completed", "identity", identity)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := connectedPage.Execute(w, identity); err != nil {
		h.logger.Error("Failed to render page", "error", err)
	}
}
