package notify

import (
	"context"
	"errors"
	"fmt"
)

// MultiSink fans an event out to every sink. All sinks are tried; their
// errors are joined.
type MultiSink []Sink

// Name implements the sink label.
func (m MultiSink) Name() string { return "multi" }

// Emit delivers ev to each sink in order.
func (m MultiSink) Emit(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sinkName(s), err))
		}
	}
	return errors.Join(errs...)
}
