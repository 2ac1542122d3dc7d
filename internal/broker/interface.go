package broker

import (
	"context"

	"github.com/Baaaki/daily-report/internal/audit"
)

// EventBroker fans committed employee mutations out to other processes.
// Record matches audit.Recorder, so a broker can sit next to the journal.
type EventBroker interface {
	Record(entry audit.Entry) error
	Subscribe(ctx context.Context) (<-chan audit.Entry, error)
	Close() error
}
