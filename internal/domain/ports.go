package domain

import "context"

// EventSink receives interaction events delivered by a Notifier. Events are
// keyed by the correlation tag embedded in the shown markup. Implementations
// must return quickly; notifiers deliver events on their own goroutine and a
// slow sink stalls further delivery from the same backend.
type EventSink interface {
	Activated(tag string)
	Dismissed(tag string, reason DismissReason)
	Failed(tag string, err error)
}

// Notifier is the external presentation surface. Show displays rendered
// markup under the given correlation tag; later interaction events are
// delivered to the sink registered via Subscribe, carrying that tag back.
type Notifier interface {
	Show(ctx context.Context, tag, markup string) error
	Subscribe(sink EventSink)
}

// ProcessLauncher spawns a command line asynchronously. Spawn returns once
// the process has started; it never waits for completion.
type ProcessLauncher interface {
	Spawn(commandLine string) error
}

// ClipboardWriter writes text to the system clipboard. Best-effort.
type ClipboardWriter interface {
	SetText(text string) error
}

// FolderOpener opens a directory in the platform file browser. Best-effort.
type FolderOpener interface {
	Open(path string) error
}

// Registrar performs one-time application identity registration. The
// operation is idempotent and atomic from the caller's point of view: either
// the identity is fully registered or the call reports failure.
type Registrar interface {
	EnsureRegistered(appID, displayName string) error
}
