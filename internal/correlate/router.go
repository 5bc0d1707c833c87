package correlate

import (
	"log/slog"
	"path/filepath"

	"notifyd/internal/domain"
	"notifyd/internal/metrics"
)

// Router receives interaction events from a notifier backend and dispatches
// side effects through the external collaborators. It runs on goroutines
// owned by the notifier, so handlers stay quick and never propagate errors:
// there is no request waiting for their result.
type Router struct {
	store     *Store
	launcher  domain.ProcessLauncher
	clipboard domain.ClipboardWriter
	folders   domain.FolderOpener
	logger    *slog.Logger
}

func NewRouter(store *Store, launcher domain.ProcessLauncher, clipboard domain.ClipboardWriter, folders domain.FolderOpener, logger *slog.Logger) *Router {
	return &Router{
		store:     store,
		launcher:  launcher,
		clipboard: clipboard,
		folders:   folders,
		logger:    logger,
	}
}

// Activated handles a user invoking the notification.
func (r *Router) Activated(tag string) {
	defer r.recover("activated")

	meta, ok := r.store.Lookup(tag)
	if !ok {
		// The platform can deliver events for notifications shown before a
		// restart; a miss is expected, not an error.
		r.logger.Debug("activated event for unknown tag", "tag", tag)
		metrics.EventsStale.Inc()
		return
	}
	metrics.EventsActivated.Inc()

	if meta.CallbackCommand != "" {
		r.logger.Info("executing callback command", "tag", tag, "command", meta.CallbackCommand)
		if err := r.launcher.Spawn(meta.CallbackCommand); err != nil {
			r.logger.Error("callback command launch failed", "tag", tag, "err", err)
		}
	} else {
		if err := r.clipboard.SetText(meta.Message); err != nil {
			r.logger.Error("clipboard write failed", "tag", tag, "err", err)
		}
	}

	// Independently of the command/clipboard branch, reveal staged files.
	switch {
	case meta.ImagePath != "":
		r.openContainingDir(tag, meta.ImagePath)
	case len(meta.FilePaths) > 0:
		r.openContainingDir(tag, meta.FilePaths[0])
	}
}

// Dismissed handles the notification going away. No side effect for any
// reason; logged for observability.
func (r *Router) Dismissed(tag string, reason domain.DismissReason) {
	defer r.recover("dismissed")

	metrics.EventsDismissed.Inc()
	switch reason {
	case domain.DismissUserCanceled:
		r.logger.Info("notification dismissed by user", "tag", tag)
	case domain.DismissTimedOut:
		r.logger.Info("notification timed out", "tag", tag)
	case domain.DismissApplicationHidden:
		r.logger.Info("notification hidden by application", "tag", tag)
	default:
		r.logger.Info("notification dismissed", "tag", tag, "reason", reason)
	}
}

// Failed handles a platform-side display failure. Logged only; the request
// that triggered the send has already been answered.
func (r *Router) Failed(tag string, err error) {
	defer r.recover("failed")

	metrics.EventsFailed.Inc()
	r.logger.Error("notification failed", "tag", tag, "err", err)
}

func (r *Router) openContainingDir(tag, path string) {
	dir := filepath.Dir(path)
	if err := r.folders.Open(dir); err != nil {
		r.logger.Error("folder open failed", "tag", tag, "dir", dir, "err", err)
	}
}

// recover keeps a panicking handler from killing the notifier's delivery
// goroutine.
func (r *Router) recover(event string) {
	if p := recover(); p != nil {
		r.logger.Error("event handler panic", "event", event, "panic", p)
	}
}
