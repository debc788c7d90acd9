// Package email delivers invitation messages. Dispatch is fire-and-forget
// from the caller's perspective; a failed send never blocks issuance.
package email

import (
	"context"
	"time"
)

// Invite carries the fields rendered into the invitation message.
type Invite struct {
	OrgName     string
	InviterName string
	Role        string
	AcceptURL   string
	ExpiresAt   time.Time
}

type Provider interface {
	SendInvite(ctx context.Context, to string, invite Invite) error
}

// NoOpProvider is used when email dispatch is disabled.
type NoOpProvider struct{}

func (NoOpProvider) SendInvite(ctx context.Context, to string, invite Invite) error {
	return nil
}
