package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/erazemk/zaloga/internal/config"
	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/store"
	"github.com/erazemk/zaloga/internal/transfer"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg       *config.Config
	db        *sql.DB
	store     *store.Store
	transfers *transfer.Service
	inbox     *notify.StoreSink
	metrics   *metrics.Metrics

	queue *notify.Queue
	nc    *nats.Conn
}

func openApp(cfg *config.Config) (*app, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	log := slog.Default()
	a := &app{cfg: cfg, db: database, metrics: metrics.New()}
	docs := docstore.NewSQLite(database)
	a.store = store.New(docs, store.WithLogger(log), store.WithMetrics(a.metrics))
	a.inbox = notify.NewStoreSink(docs)

	var sinks notify.MultiSink
	if cfg.Notifications.Store {
		sinks = append(sinks, a.inbox)
	}
	if cfg.Notifications.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.Notifications.NATSURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.nc = nc
		sinks = append(sinks, notify.NewNATSSink(nc, cfg.Notifications.SubjectPrefix))
	}

	var sink notify.Sink
	switch len(sinks) {
	case 0:
		sink = notify.Discard
	case 1:
		sink = sinks[0]
	default:
		sink = sinks
	}
	if cfg.Notifications.QueueSize > 0 {
		a.queue = notify.NewQueue(sink, cfg.Notifications.QueueSize, log, a.metrics)
		sink = a.queue
	}

	a.transfers = transfer.New(a.store,
		transfer.WithLogger(log),
		transfer.WithMetrics(a.metrics),
		transfer.WithEmitter(notify.NewEmitter(sink, log, a.metrics)),
		transfer.WithShipmentMode(cfg.ShipmentMode()),
	)

	slog.Debug("database ready", "path", cfg.Database.Path, "shipment_mode", cfg.ShipmentMode())
	return a, nil
}

// close drains queued notifications, then releases connections and
// writes the metrics textfile.
func (a *app) close() error {
	var errs []error
	if a.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.queue.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("draining notifications: %w", err))
		}
		cancel()
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("draining NATS connection: %w", err))
		}
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}
