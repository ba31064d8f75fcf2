package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"heartrate-go/internal/secret"

	"golang.org/x/oauth2"
)

// fakeProvider is a token endpoint that understands the authorization_code
// and refresh_token grants.
type fakeProvider struct {
	server *httptest.Server

	mu        sync.Mutex
	requests  int
	lastForm  map[string]string
	challenge string // expected S256 challenge for code exchanges
	status    int
	body      string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{status: http.StatusOK}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) handle(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.lastForm = map[string]string{}
	for k := range r.PostForm {
		p.lastForm[k] = r.PostForm.Get(k)
	}

	w.Header().Set("Content-Type", "application/json")
	if p.status != http.StatusOK {
		w.WriteHeader(p.status)
		_, _ = w.Write([]byte(p.body))
		return
	}
	if p.body != "" {
		_, _ = w.Write([]byte(p.body))
		return
	}

	var resp map[string]any
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if p.challenge != "" && oauth2.S256ChallengeFromVerifier(r.PostForm.Get("code_verifier")) != p.challenge {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		resp = map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    28800,
			"scope":         "heartrate",
		}
	case "refresh_token":
		resp = map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"token_type":    "Bearer",
			"expires_in":    28800,
			"scope":         "heartrate",
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unsupported_grant_type"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (p *fakeProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *fakeProvider) form(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastForm[key]
}

func (p *fakeProvider) credentials() ClientCredentials {
	return ClientCredentials{
		ClientID:     "test-client-id",
		ClientSecret: secret.New("test-client-secret"),
		AuthURL:      p.server.URL + "/oauth2/authorize",
		TokenURL:     p.server.URL + "/oauth2/token",
		RedirectURL:  "http://localhost:8085/callback",
		Scopes:       []string{DefaultScope},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
}

func newTestManager(t *testing.T, p *fakeProvider) *OAuthManager {
	t.Helper()
	m, err := NewOAuthManager(p.credentials(), NewInMemoryStateStore(StateTTL), nil)
	if err != nil {
		t.Fatalf("NewOAuthManager: %v", err)
	}
	m.SetHTTPClient(p.server.Client())
	return m
}
