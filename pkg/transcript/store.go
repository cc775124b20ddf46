// Package transcript persists conversation turns to a relational database so
// sessions can be audited or restored after a restart.
package transcript

import (
	"context"
	"encoding/json"
	"time"

	"github.com/finsight/finsight/pkg/agent"
)

// Record is one persisted conversation turn.
type Record struct {
	ID        string
	SessionID string
	Seq       int64
	Kind      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Turn decodes the stored payload back into a conversation turn.
func (r *Record) Turn() (agent.Turn, error) {
	var t agent.Turn
	err := json.Unmarshal(r.Payload, &t)
	return t, err
}

// Store persists conversation turns per session.
type Store interface {
	Append(ctx context.Context, sessionID string, turn agent.Turn) (*Record, error)
	List(ctx context.Context, sessionID string, limit int) ([]Record, error)
	Clear(ctx context.Context, sessionID string) error
	Close() error
}
