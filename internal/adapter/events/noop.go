// Package events holds application event publishers.
package events

import (
	"context"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// Noop drops events. Used when no brokers are configured.
type Noop struct{}

var _ domain.EventPublisher = Noop{}

// Publish implements domain.EventPublisher.
func (Noop) Publish(context.Context, domain.ApplicationEvent) error { return nil }
