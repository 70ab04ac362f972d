package ports

import (
	"context"

	"github.com/snapmeal/auth-service/internal/core/domain"
)

// AuditRecorder accepts auth events for asynchronous persistence. Record must
// never block the calling request; events may be dropped under backpressure.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}

// AuthEventRepository persists audit records.
type AuthEventRepository interface {
	Insert(ctx context.Context, event domain.AuthEvent) error
}
