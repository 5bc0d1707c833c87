// Package dispatch runs the send pipeline: render the request, record its
// correlation metadata, then hand the markup to the platform notifier.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"notifyd/internal/correlate"
	"notifyd/internal/domain"
	"notifyd/internal/metrics"
	"notifyd/internal/render"
)

// Dispatcher owns the shared notifier handle. Show calls are serialized
// behind sendMu because the platform API is not assumed reentrant-safe; the
// lock is distinct from the correlation store's, so a slow Show never blocks
// concurrent event lookups.
type Dispatcher struct {
	store       *correlate.Store
	notifier    domain.Notifier
	showTimeout time.Duration
	logger      *slog.Logger

	sendMu sync.Mutex
}

func New(store *correlate.Store, notifier domain.Notifier, showTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		notifier:    notifier,
		showTimeout: showTimeout,
		logger:      logger,
	}
}

// Send renders the request and shows it. The correlation entry is inserted
// strictly before Show, so any event the platform can deliver for this
// notification finds its metadata.
func (d *Dispatcher) Send(ctx context.Context, req *domain.NotificationRequest) (string, error) {
	markup, tag, err := render.Render(req)
	if err != nil {
		return "", err
	}

	meta := domain.CallbackMetadata{
		CallbackCommand: req.CallbackCommand,
		Message:         req.Message,
		ImagePath:       req.ImagePath,
		FilePaths:       req.FilePaths,
	}
	if err := d.store.Insert(tag, meta); err != nil {
		// Tags are unique by construction; hitting this means a broken tag
		// generator, not bad input.
		return "", &domain.PlatformError{Msg: "correlation insert failed", Err: err}
	}
	metrics.CorrelationEntries.Set(int64(d.store.Len()))

	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	showCtx := ctx
	if d.showTimeout > 0 {
		var cancel context.CancelFunc
		showCtx, cancel = context.WithTimeout(ctx, d.showTimeout)
		defer cancel()
	}

	if err := d.notifier.Show(showCtx, tag, markup); err != nil {
		metrics.NotificationsFailed.Inc()
		return "", &domain.PlatformError{Msg: "cannot show notification", Err: err}
	}

	metrics.NotificationsSent.Inc()
	d.logger.Info("notification sent", "tag", tag)
	return tag, nil
}
