package domain

import "time"

// PendingNotification is an accepted trade result waiting out the grace
// period before the owning user is told about it.
type PendingNotification struct {
	Seq       uint64
	User      string
	Position  Position
	CreatedAt time.Time
}
