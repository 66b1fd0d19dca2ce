package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// OutcomeCounter counts auth outcomes, typically in Prometheus.
type OutcomeCounter interface {
	AuthOutcome(kind string)
}

type noopCounter struct{}

func (noopCounter) AuthOutcome(string) {}

// auditor appends AuthEvents. Recording is best effort: a failure is logged
// and never changes the outcome of the operation being audited.
type auditor struct {
	events  repository.AuthEventRepository
	counter OutcomeCounter
	now     func() time.Time
}

func (a *auditor) record(ctx context.Context, kind domain.AuthEventKind, userID *uint, meta map[string]string) {
	a.counter.AuthOutcome(string(kind))

	event := &domain.AuthEvent{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		CreatedAt: a.now(),
	}
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err == nil {
			event.Metadata = datatypes.JSON(raw)
		}
	}

	if err := a.events.Create(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("kind", string(kind)).Msg("failed to record auth event")
	}
}

func userRef(id uint) *uint {
	return &id
}
