package history_engine

import (
	"context"

	"github.com/markdave123-py/aspiro/internal/models"
)

// Recorder persists chat turns off the request path.
type Recorder interface {
	Start(ctx context.Context)
	// Record queues a turn and reports whether it was accepted. It never blocks.
	Record(turn models.Turn) bool
	// Close stops accepting turns and waits until the queued ones are written.
	Close()
}

// Appender is the write side of the history service.
type Appender interface {
	AppendTurn(ctx context.Context, turn models.Turn) (*models.ChatMessage, error)
}
