package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"receipts/pkg/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// DefaultCallbackTimeout bounds how long the listener waits for the browser
const DefaultCallbackTimeout = 5 * time.Minute

// ErrCallbackTimeout is returned when no callback arrives in time
var ErrCallbackTimeout = errors.New("authentication timeout - no callback received")

// CallbackServer is a CallbackSource that receives the authorization
// redirect on a local HTTP listener instead of asking the operator to paste
// it. State verification is left to the Client.
type CallbackServer struct {
	addr    string
	path    string
	timeout time.Duration
	out     io.Writer
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	cancel   context.CancelFunc
	results  chan string
	once     sync.Once
}

// CallbackOption configures a CallbackServer
type CallbackOption func(*CallbackServer)

// WithCallbackTimeout sets how long AwaitCallback waits
func WithCallbackTimeout(d time.Duration) CallbackOption {
	return func(s *CallbackServer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCallbackOutput sets where the authorization URL is printed
func WithCallbackOutput(w io.Writer) CallbackOption {
	return func(s *CallbackServer) {
		if w != nil {
			s.out = w
		}
	}
}

// WithCallbackLogger sets the listener's logger
func WithCallbackLogger(logger *slog.Logger) CallbackOption {
	return func(s *CallbackServer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCallbackServer creates a listener for the host, port and path of redirectURI
func NewCallbackServer(redirectURI string, opts ...CallbackOption) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", redirectURI, err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("redirect URI %q must be an http URL with a host to listen on", redirectURI)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "80")
	}

	s := &CallbackServer{
		addr:    addr,
		path:    path,
		timeout: DefaultCallbackTimeout,
		out:     os.Stdout,
		logger:  slog.Default(),
		results: make(chan string, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start binds the listener and begins serving. It is a no-op while
// already running; a stopped server can be started again.
func (s *CallbackServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	// Each run accepts one fresh callback; drop anything left from the last
	s.once = sync.Once{}
	select {
	case <-s.results:
	default:
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}

	serveCtx, cancel := context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.RequestLogger(s.logger)(handler)
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.NewRateLimiter(serveCtx, 5, 10, time.Minute).Middleware(handler)

	s.listener = listener
	s.cancel = cancel
	s.server = &http.Server{
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server error", "error", err)
		}
	}()

	s.logger.Debug("callback server listening", "addr", listener.Addr().String(), "path", s.path)
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *CallbackServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the callback URL the listener answers on
func (s *CallbackServer) URL() string {
	return "http://" + s.Addr() + s.path
}

// Stop shuts the listener down
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(shutdownCtx)
	s.server = nil
	s.listener = nil
	return err
}

// AwaitCallback prints the authorization URL and waits for the redirect
func (s *CallbackServer) AwaitCallback(ctx context.Context, authURL string) (string, error) {
	if err := s.Start(ctx); err != nil {
		return "", err
	}
	defer s.Stop()

	fmt.Fprintf(s.out, "Visit %s and follow email flow to obtain your temporary authorization code...\n", authURL)
	fmt.Fprintf(s.out, "Waiting for callback on %s\n", s.URL())

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case callbackURL := <-s.results:
		return callbackURL, nil
	case <-ctx.Done():
		return "", fmt.Errorf("authentication cancelled: %w", ctx.Err())
	case <-timer.C:
		return "", fmt.Errorf("%w after %s", ErrCallbackTimeout, s.timeout)
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.path || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	q := r.URL.Query()
	if !q.Has("code") && !q.Has("state") && !q.Has("error") {
		w.WriteHeader(http.StatusBadRequest)
		_ = callbackPage("Not an authorization callback", "This address only accepts the redirect from the authorization server.", false).Render(w)
		return
	}

	callbackURL := "http://" + r.Host + r.URL.RequestURI()
	delivered := false
	s.once.Do(func() {
		s.results <- callbackURL
		delivered = true
	})
	if !delivered {
		w.WriteHeader(http.StatusConflict)
		_ = callbackPage("Callback already received", "Return to your terminal.", false).Render(w)
		return
	}

	if errParam := q.Get("error"); errParam != "" {
		_ = callbackPage("Authorization failed", fmt.Sprintf("%s: %s", errParam, q.Get("error_description")), false).Render(w)
		return
	}
	_ = callbackPage("Authorization received", "You can close this window and return to your terminal.", true).Render(w)
}

func callbackPage(title, message string, ok bool) g.Node {
	headingClass := "failure"
	if ok {
		headingClass = "success"
	}

	return h.Doctype(
		h.HTML(
			h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("UTF-8")),
				h.TitleEl(g.Text(title)),
				h.StyleEl(g.Raw(`
					body { font-family: Arial, sans-serif; text-align: center; padding: 50px; background: #f5f5f5; }
					.container { background: white; padding: 40px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); max-width: 500px; margin: 0 auto; }
					.success { color: #4CAF50; }
					.failure { color: #d9534f; }
					p { color: #666; }
				`)),
			),
			h.Body(
				h.Div(
					h.Class("container"),
					h.H1(h.Class(headingClass), g.Text(title)),
					h.P(g.Text(message)),
				),
			),
		),
	)
}
