package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/domain"
)

const (
	headerRequestID = "X-Request-ID"
	localRequestID  = "request_id"

	bodyLimit       = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// HTTPTransport serves the screening API with fiber.
type HTTPTransport struct {
	addr           string
	requestTimeout time.Duration
	logger         log.Logger

	mu      sync.RWMutex
	app     *fiber.App
	ln      net.Listener
	running bool
	done    chan struct{}
}

var _ ServerTransport = (*HTTPTransport)(nil)

func NewHTTPTransport(opts Options) *HTTPTransport {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &HTTPTransport{
		addr:           opts.Addr,
		requestTimeout: opts.RequestTimeout,
		logger:         opts.Logger,
	}
}

// Start binds the listener and serves in the background.
func (t *HTTPTransport) Start(ctx context.Context, handler Screener) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("HTTP transport already running")
	}
	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind HTTP listener on %s: %w", t.addr, err)
	}

	t.app = t.newApp(handler)
	t.ln = ln
	t.running = true
	t.done = make(chan struct{})

	go t.serve(t.app, ln, t.done)
	go func(done chan struct{}) {
		select {
		case <-ctx.Done():
			t.logger.Debug(nil, "HTTP transport stopping due to context cancellation")
			_ = t.Stop()
		case <-done:
		}
	}(t.done)

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   ln.Addr().String(),
	}, "HTTP transport started")
	return nil
}

func (t *HTTPTransport) serve(app *fiber.App, ln net.Listener, done chan struct{}) {
	defer close(done)
	if err := app.Listener(ln); err != nil {
		t.mu.RLock()
		running := t.running
		t.mu.RUnlock()
		if running {
			t.logger.Error(map[string]any{"error": err}, "HTTP listener failed")
		}
	}
}

// Stop shuts down the server, waiting up to shutdownTimeout for in-flight
// requests.
func (t *HTTPTransport) Stop() error {
	t.mu.Lock()
	if !t.running {
		// A concurrent Stop may still be draining; wait for it.
		done := t.done
		t.mu.Unlock()
		if done != nil {
			<-done
		}
		return nil
	}
	t.running = false
	app, done := t.app, t.done
	t.mu.Unlock()

	err := app.ShutdownWithTimeout(shutdownTimeout)
	if err != nil {
		t.logger.Warn(map[string]any{"error": err}, "Error shutting down HTTP server")
	}
	<-done

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   t.Address(),
	}, "HTTP transport stopped")
	return err
}

func (t *HTTPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.ln != nil {
		return t.ln.Addr().String()
	}
	return t.addr
}

// newApp builds the fiber application with middleware and routes bound to h.
func (t *HTTPTransport) newApp(h Screener) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          t.errorHandler,
	})

	app.Use(t.recoverPanics)
	app.Use(requestID)
	app.Use(t.accessLog)

	handlers := &handlers{svc: h, timeout: t.requestTimeout}
	app.Post("/check-url", handlers.checkURL)
	app.Post("/check-email", handlers.checkEmail)
	app.Get("/healthz", handlers.healthz)
	app.Get("/stats", handlers.stats)
	return app
}

func requestID(c *fiber.Ctx) error {
	id := c.Get(headerRequestID)
	if id == "" {
		id = uuid.New().String()
	}
	c.Locals(localRequestID, id)
	c.Set(headerRequestID, id)
	return c.Next()
}

func (t *HTTPTransport) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Let the error handler set the final status before logging it.
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	id, _ := c.Locals(localRequestID).(string)
	t.logger.Info(map[string]any{
		"request_id":  id,
		"method":      c.Method(),
		"path":        c.Path(),
		"status":      c.Response().StatusCode(),
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
		"ip":          c.IP(),
	}, "http request")
	return nil
}

// recoverPanics turns a handler panic into a 500 for that request only.
func (t *HTTPTransport) recoverPanics(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			id, _ := c.Locals(localRequestID).(string)
			t.logger.Error(map[string]any{
				"request_id": id,
				"panic":      fmt.Sprintf("%v", r),
				"path":       c.Path(),
				"stack":      string(debug.Stack()),
			}, "Panic recovered")
			err = c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: "internal error", RequestID: id})
		}
	}()
	return c.Next()
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// errorHandler renders errors returned by handlers as JSON.
func (t *HTTPTransport) errorHandler(c *fiber.Ctx, err error) error {
	id, _ := c.Locals(localRequestID).(string)
	status, msg := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		t.logger.Error(map[string]any{"request_id": id, "status": status, "error": err}, "request failed")
	}
	return c.Status(status).JSON(errorBody{Error: msg, RequestID: id})
}

// statusFor maps an error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotLoaded):
		return fiber.StatusServiceUnavailable, "corpus not loaded"
	case errors.Is(err, domain.ErrClassifierDisabled):
		return fiber.StatusServiceUnavailable, "classifier not configured"
	case errors.Is(err, domain.ErrGateway):
		return fiber.StatusBadGateway, "classification service error"
	default:
		return fiber.StatusInternalServerError, "internal error"
	}
}
