// Package notification is the boundary to the patient notification sink.
// The ingress pipeline only creates notifications; delivery (e-mail, push)
// is owned elsewhere.
package notification

import (
	"context"
	"time"
)

// Notification tells a patient a new document arrived.
type Notification struct {
	ID        string
	PatientID string
	ReportID  string
	Message   string
	CreatedAt time.Time
}

// Sink accepts notifications for later delivery.
type Sink interface {
	Create(ctx context.Context, n *Notification) error
}
