package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const defaultQueue = "kindrahealth:patient-notifications"

// outcomeMessage is the payload pushed onto the notification queue. The
// patient messaging service drains the queue and picks the channel (email,
// SMS, portal) itself.
type outcomeMessage struct {
	WorkflowID       string    `json:"workflow_id"`
	PatientID        string    `json:"patient_id"`
	PatientName      string    `json:"patient_name"`
	ActionsCompleted int       `json:"actions_completed"`
	TotalActions     int       `json:"total_actions"`
	QueuedAt         time.Time `json:"queued_at"`
}

// RedisNotifier pushes outcome messages onto a redis list consumed by the
// external patient messaging service.
type RedisNotifier struct {
	client redis.UniversalClient
	queue  string
	logger *slog.Logger
}

func NewRedisNotifier(redisURL, queue string, logger *slog.Logger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if queue == "" {
		queue = defaultQueue
	}

	return &RedisNotifier{
		client: redis.NewClient(opts),
		queue:  queue,
		logger: logger.With("module", "patient_notifier", "queue", queue),
	}, nil
}

func (n *RedisNotifier) DeliverOutcome(ctx context.Context, workflow *models.WorkflowExecution) error {
	message := outcomeMessage{
		WorkflowID:       workflow.ID,
		PatientID:        workflow.PatientID,
		PatientName:      workflow.PatientName,
		ActionsCompleted: workflow.CompletedActions(),
		TotalActions:     len(workflow.Actions),
		QueuedAt:         time.Now().UTC(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome message: %w", err)
	}

	if err := n.client.LPush(ctx, n.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue patient notification: %w", err)
	}

	n.logger.InfoContext(ctx, "Patient notification queued", "workflow_id", workflow.ID)

	return nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
