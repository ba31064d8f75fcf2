package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdinPrompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "code with newline", input: "abc123\n", want: "abc123"},
		{name: "surrounding whitespace", input: "  abc123 \r\n", want: "abc123"},
		{name: "no trailing newline", input: "abc123", want: "abc123"},
		{name: "blank line", input: "\n", wantErr: true},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			prompt := StdinPrompt(strings.NewReader(tt.input), &out)

			code, err := prompt(context.Background(), "https://example.com/authorize?x=1", "state")
			assert.Equal(t, "Browse to: https://example.com/authorize?x=1\nEnter code: ", out.String())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestStdinPrompt_Cancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := StdinPrompt(r, io.Discard)(ctx, "https://example.com", "state")
	assert.ErrorIs(t, err, context.Canceled)

	// The abandoned reader still consumes the next line and exits.
	written := make(chan error, 1)
	go func() {
		_, err := io.WriteString(w, "late-code\n")
		written <- err
	}()
	select {
	case err := <-written:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reader goroutine did not consume the pending line")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// redirect hits the callback listener until it accepts the connection.
func redirect(t *testing.T, url string) *http.Response {
	t.Helper()
	var lastErr error
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		lastErr = err
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("callback listener never came up: %v", lastErr)
	return nil
}

func TestCallbackPrompt(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCode   string
		wantErr    bool
		wantStatus int
	}{
		{name: "valid redirect", query: "code=the-code&state=s1", wantCode: "the-code", wantStatus: http.StatusOK},
		{name: "state mismatch", query: "code=the-code&state=other", wantErr: true, wantStatus: http.StatusBadRequest},
		{name: "missing code", query: "state=s1", wantErr: true, wantStatus: http.StatusBadRequest},
		{name: "provider error", query: "error=access_denied&state=s1", wantErr: true, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := freeAddr(t)
			var out bytes.Buffer
			prompt := CallbackPrompt(addr, "/callback", &out, nil)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			type result struct {
				code string
				err  error
			}
			done := make(chan result, 1)
			go func() {
				code, err := prompt(ctx, "https://example.com/authorize", "s1")
				done <- result{code, err}
			}()

			resp := redirect(t, fmt.Sprintf("http://%s/callback?%s", addr, tt.query))
			resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			res := <-done
			if tt.wantErr {
				assert.Error(t, res.err)
				return
			}
			require.NoError(t, res.err)
			assert.Equal(t, tt.wantCode, res.code)
			assert.Contains(t, out.String(), "Browse to: https://example.com/authorize\n")
		})
	}
}
