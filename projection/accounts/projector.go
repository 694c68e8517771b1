package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/accountstreams/account-cqrs-go/account/core"
	"github.com/accountstreams/account-cqrs-go/account/shell"
	"github.com/accountstreams/account-cqrs-go/eventstore"
)

// ProjectorName identifies the account projector in the checkpoints table.
const ProjectorName = "accounts"

const (
	logMsgProjectorResuming      = "projector resuming from checkpoint"
	logMsgProjectorStopped       = "projector stopped"
	logMsgProjectingEventFailed  = "projecting event failed, skipping"
	logMsgSavingCheckpointFailed = "saving checkpoint failed"

	logAttrError          = "error"
	logAttrStreamID       = "stream_id"
	logAttrEventType      = "event_type"
	logAttrGlobalPosition = "global_position"
	logAttrCheckpoint     = "checkpoint"
)

// ErrUnknownAccountEventType is returned when an event in the account stream
// namespace carries an event type the projector does not know.
var ErrUnknownAccountEventType = errors.New("unknown account event type")

// Logger interface for operational logging of the projector.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// EventStream defines the interface the Projector needs to consume the
// all-streams feed.
type EventStream interface {
	SubscribeToAll(ctx context.Context, afterPosition eventstore.GlobalPosition) *eventstore.Subscription
}

// ReadModel defines the interface the Projector needs to apply events and
// track its checkpoint. ReadStore implements it against Postgres.
type ReadModel interface {
	CreateAccountIfAbsent(ctx context.Context, accountID uuid.UUID, owner string, balance int64, version int64) error
	ApplyBalanceChange(ctx context.Context, accountID uuid.UUID, delta int64, version int64) error
	Checkpoint(ctx context.Context, projector string) (eventstore.GlobalPosition, error)
	SaveCheckpoint(ctx context.Context, projector string, position eventstore.GlobalPosition) error
}

// Projector is the long-lived consumer that keeps the account read model in
// sync with the event log. One projector instance runs per deployment.
type Projector struct {
	stream    EventStream
	readModel ReadModel
	logger    Logger
}

// ProjectorOption defines a functional option for configuring Projector.
type ProjectorOption func(*Projector)

// WithLogger sets the logger for the Projector.
func WithLogger(logger Logger) ProjectorOption {
	return func(p *Projector) {
		p.logger = logger
	}
}

// NewProjector creates a Projector consuming the given stream into the given read model.
func NewProjector(stream EventStream, readModel ReadModel, options ...ProjectorOption) Projector {
	projector := Projector{
		stream:    stream,
		readModel: readModel,
	}

	for _, option := range options {
		option(&projector)
	}

	return projector
}

// Run consumes the all-streams feed until the context is canceled or the
// subscription fails.
//
// It resumes from the last durably recorded checkpoint, so a restart
// re-delivers events that were applied after the last checkpoint write; the
// read store's idempotency guards absorb them. A failure to project one
// event is logged and the event is skipped; a failure of the subscription
// itself is fatal and returned, and the process is expected to restart and
// resume. Cancellation is a graceful shutdown: in-flight projection
// finishes, the checkpoint is already persisted per event, and Run returns
// nil.
func (p Projector) Run(ctx context.Context) error {
	checkpoint, err := p.readModel.Checkpoint(ctx, ProjectorName)
	if err != nil {
		return err
	}

	p.logInfo(logMsgProjectorResuming, logAttrCheckpoint, checkpoint)

	subscription := p.stream.SubscribeToAll(ctx, checkpoint)

	for event := range subscription.Events() {
		if !shell.IsAccountStream(event.StreamID) {
			continue
		}

		if projectErr := p.projectEvent(ctx, event); projectErr != nil {
			p.logError(logMsgProjectingEventFailed,
				logAttrError, projectErr.Error(),
				logAttrStreamID, event.StreamID,
				logAttrEventType, event.EventType,
				logAttrGlobalPosition, event.GlobalPosition,
			)

			continue
		}

		if checkpointErr := p.readModel.SaveCheckpoint(ctx, ProjectorName, event.GlobalPosition); checkpointErr != nil {
			// The next run re-delivers from the stale checkpoint; the
			// idempotency guards make that harmless.
			p.logWarn(logMsgSavingCheckpointFailed,
				logAttrError, checkpointErr.Error(),
				logAttrGlobalPosition, event.GlobalPosition,
			)
		}
	}

	p.logInfo(logMsgProjectorStopped)

	return subscription.Err()
}

// projectEvent applies one event to the read model with event-kind-specific,
// idempotent logic keyed on the event's stream revision.
func (p Projector) projectEvent(ctx context.Context, event eventstore.StoredEvent) error {
	domainEvent, err := shell.DomainEventFrom(event.StorableEvent)
	if err != nil {
		return err
	}

	switch e := domainEvent.(type) {
	case core.AccountCreated:
		accountID, parseErr := uuid.Parse(e.AccountID)
		if parseErr != nil {
			return parseErr
		}

		return p.readModel.CreateAccountIfAbsent(ctx, accountID, e.Owner, e.InitialBalance, event.StreamRevision)

	case core.MoneyDeposited:
		accountID, parseErr := uuid.Parse(e.AccountID)
		if parseErr != nil {
			return parseErr
		}

		return p.readModel.ApplyBalanceChange(ctx, accountID, e.Amount, event.StreamRevision)

	case core.MoneyWithdrawn:
		accountID, parseErr := uuid.Parse(e.AccountID)
		if parseErr != nil {
			return parseErr
		}

		return p.readModel.ApplyBalanceChange(ctx, accountID, -e.Amount, event.StreamRevision)

	default:
		return ErrUnknownAccountEventType
	}
}

func (p Projector) logInfo(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p Projector) logWarn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p Projector) logError(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
