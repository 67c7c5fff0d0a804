package cmd

import (
	"fmt"
	"log/slog"

	"github.com/darinjswilliams/kindrahealth/pkg/notify"
)

// NewNotifier returns the Redis-backed patient notifier when a Redis URL
// is configured, otherwise a no-op notifier.
func NewNotifier(redisURL, queue string, logger *slog.Logger) (notify.Notifier, error) {
	if redisURL == "" {
		return notify.Noop{}, nil
	}

	notifier, err := notify.NewRedisNotifier(redisURL, queue, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis notifier: %w", err)
	}

	return notifier, nil
}
