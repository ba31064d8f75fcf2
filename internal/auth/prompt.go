package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// StdinPrompt prints the authorization URL to out and reads the code the
// user pastes into in.
//
// A cancelled ctx returns at once, but the read of in cannot be interrupted:
// its goroutine stays blocked until in yields a line or EOF and then exits
// without a receiver. Do not read from in again after a cancelled prompt.
func StdinPrompt(in io.Reader, out io.Writer) CodePrompt {
	return func(ctx context.Context, authURL, _ string) (string, error) {
		fmt.Fprintf(out, "Browse to: %s\n", authURL)
		fmt.Fprint(out, "Enter code: ")

		lines := make(chan string, 1)
		errs := make(chan error, 1)
		go func() {
			line, err := bufio.NewReader(in).ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				errs <- err
				return
			}
			lines <- line
		}()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case err := <-errs:
			return "", fmt.Errorf("reading authorization code: %w", err)
		case line := <-lines:
			code := strings.TrimSpace(line)
			if code == "" {
				return "", fmt.Errorf("no authorization code entered")
			}
			return code, nil
		}
	}
}

type callbackResult struct {
	code string
	err  error
}

// CallbackPrompt starts a local HTTP listener on addr, prints the
// authorization URL and waits for the provider to redirect to path with the
// code. The state in the redirect must match the one the URL was built with.
func CallbackPrompt(addr, path string, out io.Writer, logger *slog.Logger) CodePrompt {
	if path == "" {
		path = "/"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, authURL, state string) (string, error) {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return "", fmt.Errorf("failed to listen for callback on %s: %w", addr, err)
		}

		results := make(chan callbackResult, 1)
		mux := http.NewServeMux()
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			res := callbackResult{code: q.Get("code")}
			switch {
			case q.Get("error") != "":
				res.err = fmt.Errorf("provider returned error: %s %s", q.Get("error"), q.Get("error_description"))
			case q.Get("state") != state:
				res.err = fmt.Errorf("state mismatch in callback")
			case res.code == "":
				res.err = fmt.Errorf("callback did not include a code")
			}

			if res.err != nil {
				http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
			} else {
				w.Header().Set("Content-Type", "text/html")
				_, _ = io.WriteString(w, "<html><body><h1>Authorization Successful</h1>"+
					"<p>You can now close this window and return to the terminal.</p></body></html>")
			}

			select {
			case results <- res:
			default:
			}
		})

		server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("callback server error", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(out, "Browse to: %s\n", authURL)
		fmt.Fprintf(out, "Waiting for the redirect on %s%s ...\n", ln.Addr(), path)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res := <-results:
			return res.code, res.err
		}
	}
}
