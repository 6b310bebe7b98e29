// Package transport exposes the screener over the network. The transport
// decodes requests into domain values, calls the service layer, and maps
// domain errors to protocol status codes.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/domain"
	"github.com/haukened/phishscreen/internal/screen/repos/membership"
)

// ServerTransport is implemented by every listener the daemon can run.
type ServerTransport interface {
	// Start binds the listener and serves requests via handler until Stop
	// is called or ctx is cancelled.
	Start(ctx context.Context, handler Screener) error

	// Stop gracefully shuts down the listener.
	Stop() error

	// Address returns the bound address once started, else the configured one.
	Address() string
}

// Screener is the service-layer contract the transport serves.
type Screener interface {
	CheckURL(raw string) (domain.URLCheck, error)
	CheckEmail(ctx context.Context, email domain.Email) (domain.Classification, error)
	Ready() bool
	ClassifierEnabled() bool
	Stats() membership.RepoStats
}

// TransportType names a supported listener protocol.
type TransportType string

const (
	// TransportHTTP serves the JSON API over HTTP/1.1.
	TransportHTTP TransportType = "http"
)

// Options configures a transport built by NewTransport.
type Options struct {
	Addr           string
	RequestTimeout time.Duration // bound on classifier calls; 0 means none
	Logger         log.Logger
}

// NewTransport creates a transport of the requested type.
func NewTransport(transportType TransportType, opts Options) (ServerTransport, error) {
	switch transportType {
	case TransportHTTP:
		return NewHTTPTransport(opts), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}
