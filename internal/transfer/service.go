// Package transfer runs the cross-branch transfer order workflow:
// request, approve or reject, ship, receive, cancel.
package transfer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/store"
)

// ShipmentMode selects how ship and receive group their stock writes.
type ShipmentMode string

// Shipment modes.
const (
	// ShipmentAtomic commits every line, the status change and the workflow
	// event in one transaction.
	ShipmentAtomic ShipmentMode = "atomic"
	// ShipmentPerLine commits each line on its own. A failing line leaves
	// earlier lines applied and the status unchanged.
	ShipmentPerLine ShipmentMode = "per_line"
)

// ParseShipmentMode parses a configured mode. Empty means atomic.
func ParseShipmentMode(v string) (ShipmentMode, error) {
	switch m := ShipmentMode(strings.ToLower(strings.TrimSpace(v))); m {
	case "":
		return ShipmentAtomic, nil
	case ShipmentAtomic, ShipmentPerLine:
		return m, nil
	}
	return "", fmt.Errorf("unknown shipment mode %q", v)
}

var ordersCollection = docstore.Collection("orders")

// Service is the transfer order state machine.
type Service struct {
	store   *store.Store
	emitter *notify.Emitter
	metrics *metrics.Metrics
	log     *slog.Logger
	mode    ShipmentMode
	now     func() time.Time
	newID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithEmitter sets the notification emitter.
func WithEmitter(e *notify.Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithShipmentMode sets the shipment mode.
func WithShipmentMode(mode ShipmentMode) Option {
	return func(s *Service) { s.mode = mode }
}

// WithClock overrides the clock used for order timestamps and numbers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service over st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		log:   slog.Default(),
		mode:  ShipmentAtomic,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.emitter == nil {
		s.emitter = notify.NewEmitter(nil, s.log, s.metrics)
	}
	return s
}

// Mode returns the configured shipment mode.
func (s *Service) Mode() ShipmentMode { return s.mode }

func orderRef(id string) docstore.DocRef {
	return ordersCollection.Doc(id)
}

// orderNumber formats the human-readable number, TR-YYYYMMDD-XXXXXX.
func orderNumber(now time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return fmt.Sprintf("TR-%s-%s", now.UTC().Format("20060102"), suffix)
}

func orderLink(id string) string {
	return "/transfers/" + id
}
