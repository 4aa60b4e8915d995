package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is the subject prefix used when none is configured.
const DefaultSubjectPrefix = "zaloga.notifications"

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes events as JSON to "<prefix>.<branch>".
type NATSSink struct {
	pub    Publisher
	prefix string
}

// NewNATSSink returns a sink publishing through pub.
func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{pub: pub, prefix: strings.TrimSuffix(prefix, ".")}
}

// ConnectNATS dials url and returns the connection.
func ConnectNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("zaloga"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

// Name implements the sink label.
func (s *NATSSink) Name() string { return "nats" }

// Subject returns the subject events for branchID are published on.
func (s *NATSSink) Subject(branchID string) string {
	return s.prefix + "." + subjectToken(branchID)
}

// Emit publishes ev.
func (s *NATSSink) Emit(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := s.pub.Publish(s.Subject(ev.BranchID), data); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}

// subjectToken replaces characters NATS treats as separators or wildcards.
func subjectToken(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, id)
}
