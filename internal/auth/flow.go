package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
)

// Redirect ports are drawn from this fixed loopback range.
const (
	portRangeStart = 8400
	portRangeSize  = 100
)

// DefaultLoginTimeout bounds the whole flow: if no redirect arrives within it,
// the login attempt fails.
const DefaultLoginTimeout = 120 * time.Second

// Flow performs one login attempt. All state is ephemeral: nothing here is
// persisted, the caller stores only the resulting access token.
type Flow struct {
	ServerURL  string
	HTTPClient *http.Client

	// OpenURL opens the authorization URL in the operator's browser.
	// Defaults to browser.OpenURL; tests substitute a fetcher.
	OpenURL func(url string) error

	// Timeout overrides DefaultLoginTimeout when non-zero.
	Timeout time.Duration
}

// callbackResult carries the outcome of the one expected redirect.
type callbackResult struct {
	code string
	err  error
}

// Login walks the linear PKCE state machine: generate verifier/challenge and
// state, register a transient client, open the authorization URL, wait for
// the loopback redirect, and exchange the code for an access token.
func (f *Flow) Login(ctx context.Context) (string, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = DefaultLoginTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return "", err
	}
	challenge := GenerateCodeChallenge(verifier)
	state := uuid.NewString()

	// Bind the loopback listener before registering so the redirect URI we
	// declare is known to be free.
	port := portRangeStart + rand.IntN(portRangeSize)
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("bind callback port %d: %w", port, err)
	}
	defer ln.Close()
	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	clientID, err := f.registerClient(ctx, redirectURI)
	if err != nil {
		return "", err
	}
	slog.Debug("oauth client registered", "client_id", clientID, "redirect_uri", redirectURI)

	resultCh := make(chan callbackResult, 1)
	srv := &http.Server{Handler: f.callbackHandler(state, resultCh)}
	go srv.Serve(ln)
	defer srv.Close()

	authURL := f.buildAuthorizeURL(clientID, redirectURI, challenge, state)
	openURL := f.OpenURL
	if openURL == nil {
		openURL = browser.OpenURL
	}
	if err := openURL(authURL); err != nil {
		// Not fatal: the operator can open the URL by hand.
		slog.Warn("could not open browser", "error", err)
		fmt.Printf("Open this URL to authorize:\n  %s\n", authURL)
	}

	var code string
	select {
	case res := <-resultCh:
		if res.err != nil {
			return "", res.err
		}
		code = res.code
	case <-ctx.Done():
		return "", fmt.Errorf("timed out waiting for authorization redirect")
	}

	return f.exchangeCode(ctx, code, redirectURI, clientID, verifier)
}

// registerClient performs dynamic client registration, declaring the exact
// local redirect URI. Rejection is fatal to the flow.
func (f *Flow) registerClient(ctx context.Context, redirectURI string) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"client_name":   "arrival-tools " + uuid.NewString()[:8],
		"redirect_uris": []string{redirectURI},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.ServerURL+"/api/v1/register", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("register client: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("client registration rejected: %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var reg struct {
		ClientID string `json:"client_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return "", fmt.Errorf("parse registration response: %w", err)
	}
	if reg.ClientID == "" {
		return "", fmt.Errorf("registration response missing client_id")
	}
	return reg.ClientID, nil
}

func (f *Flow) buildAuthorizeURL(clientID, redirectURI, challenge, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", "upload")
	q.Set("state", state)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	return f.ServerURL + "/api/v1/authorize?" + q.Encode()
}

// callbackHandler serves the one expected redirect. Success and failure both
// get a minimal human-readable page; the first terminal outcome wins.
func (f *Flow) callbackHandler(state string, resultCh chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		deliver := func(res callbackResult) {
			select {
			case resultCh <- res:
			default: // a redirect already arrived
			}
		}

		if errParam := q.Get("error"); errParam != "" {
			writeCallbackPage(w, "Authorization failed", "You can close this tab and retry from the terminal.")
			deliver(callbackResult{err: fmt.Errorf("authorization denied: %s", errParam)})
			return
		}
		if q.Get("state") != state {
			writeCallbackPage(w, "Authorization failed", "State mismatch; close this tab and retry.")
			deliver(callbackResult{err: fmt.Errorf("authorization state mismatch")})
			return
		}
		code := q.Get("code")
		if code == "" {
			writeCallbackPage(w, "Authorization failed", "No authorization code in redirect.")
			deliver(callbackResult{err: fmt.Errorf("redirect missing authorization code")})
			return
		}

		writeCallbackPage(w, "Login complete", "You can close this tab and return to the terminal.")
		deliver(callbackResult{code: code})
	})
	return mux
}

func writeCallbackPage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h2>%s</h2><p>%s</p></body></html>", title, body)
}

// exchangeCode trades the authorization code plus the original verifier for
// the durable access token.
func (f *Flow) exchangeCode(ctx context.Context, code, redirectURI, clientID, verifier string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", clientID)
	form.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.ServerURL+"/api/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token exchange failed: %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return tok.AccessToken, nil
}

func (f *Flow) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}
