package events

import (
	"time"

	"github.com/google/uuid"

	"shellhost/internal/settings"
)

// Reason is the reason code carried by a lifecycle notification.
type Reason string

const (
	// ReasonShellAdded indicates a shell was built and is now active.
	ReasonShellAdded Reason = "ShellAdded"

	// ReasonShellRemoved indicates a shell was removed and its container disposed.
	ReasonShellRemoved Reason = "ShellRemoved"

	// ReasonShellUpdated indicates a shell was rebuilt from changed settings.
	ReasonShellUpdated Reason = "ShellUpdated"

	// ReasonShellsReloaded is the aggregate notification after a full reload
	// pass against the settings source.
	ReasonShellsReloaded Reason = "ShellsReloaded"
)

// Notification is one lifecycle event. Per-shell notifications carry the
// shell id and the settings the operation acted on; the aggregate reload
// notification carries counters instead.
type Notification struct {
	ID        uuid.UUID
	Reason    Reason
	Timestamp time.Time

	// Shell and Settings are set on per-shell notifications.
	Shell    settings.ShellID
	Settings settings.ShellSettings

	// Added, Removed and Changed are set on the aggregate reload notification.
	Added   int
	Removed int
	Changed int

	// Err carries the failure when the operation did not succeed.
	Err error

	// Message is the rendered human-readable summary.
	Message string
}

// NewNotification creates a notification with a fresh id and timestamp and a
// message rendered from the default templates.
func NewNotification(reason Reason, shell settings.ShellID, sh settings.ShellSettings) Notification {
	n := Notification{
		ID:        uuid.New(),
		Reason:    reason,
		Timestamp: time.Now(),
		Shell:     shell,
		Settings:  sh,
	}
	n.Message = defaultTemplates.Render(n)
	return n
}

// NewReloadNotification creates the aggregate notification for one reload pass.
func NewReloadNotification(added, removed, changed int, err error) Notification {
	n := Notification{
		ID:        uuid.New(),
		Reason:    ReasonShellsReloaded,
		Timestamp: time.Now(),
		Added:     added,
		Removed:   removed,
		Changed:   changed,
		Err:       err,
	}
	n.Message = defaultTemplates.Render(n)
	return n
}

// WithError returns a copy of the notification carrying the failure, with
// the message re-rendered.
func (n Notification) WithError(err error) Notification {
	n.Err = err
	n.Message = defaultTemplates.Render(n)
	return n
}

// Failed reports whether the notification describes a failed operation.
func (n Notification) Failed() bool {
	return n.Err != nil
}
