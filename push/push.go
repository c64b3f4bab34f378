// Package push delivers reminder notifications to user devices.
package push

import (
	"context"
	"errors"
)

// Notification is the user-visible content of a push message.
type Notification struct {
	Title string
	Body  string
}

// Notifier sends a notification to a single device token.
type Notifier interface {
	Send(ctx context.Context, token string, n Notification) error
}

// ErrDisabled is returned by the disabled notifier.
var ErrDisabled = errors.New("push notifications are not configured")

// Disabled is a Notifier used when no push credentials are configured. Every
// send fails, which keeps due tasks pending so they are retried once push is
// set up.
type Disabled struct{}

func (Disabled) Send(context.Context, string, Notification) error { return ErrDisabled }
