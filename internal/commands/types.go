package commands

import (
	"context"
	"time"

	"github.com/muratoffalex/omnibot/internal/telegram"
)

// Command is a bot command. Handle is called by the update loop and either
// runs Execute right away or defers it to the task queue.
type Command interface {
	Name() string
	Aliases() []string
	Handle(ctx context.Context, update telegram.Update) error
	Execute(ctx context.Context, update telegram.Update) error
	GetQueueConfig() QueueConfig
}

type ThrottleConfig struct {
	Period      time.Duration
	Requests    int
	Concurrency int
}

type QueueConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	Throttle   ThrottleConfig
}
