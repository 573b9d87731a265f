package events

import (
	"context"

	"gitlab.com/yelinaung/expense-tracker/internal/logger"
)

// AuditHandler writes every event to the audit log.
func AuditHandler(_ context.Context, e *Event) error {
	log := logger.Component("audit")
	log.Info().
		Str("type", string(e.Type)).
		Str("user_hash", logger.HashUsername(e.Owner)).
		Str("record_id", e.ID).
		Time("at", e.At).
		Msg("Domain event")
	return nil
}
