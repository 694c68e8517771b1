package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/accountstreams/account-cqrs-go/account/core"
	"github.com/accountstreams/account-cqrs-go/eventstore"
)

var (
	// ErrMappingToDomainEventFailed is returned when domain event conversion fails.
	ErrMappingToDomainEventFailed = errors.New("mapping to domain event failed")

	// ErrMappingToDomainEventUnknownEventType is returned for unrecognized event types.
	ErrMappingToDomainEventUnknownEventType = errors.New("unknown event type")
)

// DomainEventsFrom converts multiple StoredEvents to DomainEvents.
func DomainEventsFrom(storedEvents eventstore.StoredEvents) (core.DomainEvents, error) {
	domainEvents := make(core.DomainEvents, 0, len(storedEvents))

	for _, storedEvent := range storedEvents {
		domainEvent, err := DomainEventFrom(storedEvent.StorableEvent)
		if err != nil {
			return nil, err
		}

		domainEvents = append(domainEvents, domainEvent)
	}

	return domainEvents, nil
}

// DomainEventFrom converts a StorableEvent to its corresponding DomainEvent.
func DomainEventFrom(storableEvent eventstore.StorableEvent) (core.DomainEvent, error) {
	switch storableEvent.EventType {
	case core.AccountCreatedEventType:
		return unmarshalAccountCreated(storableEvent.PayloadJSON)

	case core.MoneyDepositedEventType:
		return unmarshalMoneyDeposited(storableEvent.PayloadJSON)

	case core.MoneyWithdrawnEventType:
		return unmarshalMoneyWithdrawn(storableEvent.PayloadJSON)

	default:
		return nil, errors.Join(ErrMappingToDomainEventFailed, ErrMappingToDomainEventUnknownEventType)
	}
}

func unmarshalAccountCreated(payloadJSON []byte) (core.DomainEvent, error) {
	payload := new(core.AccountCreated)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, payload)
	if err != nil {
		return core.AccountCreated{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return *payload, nil
}

func unmarshalMoneyDeposited(payloadJSON []byte) (core.DomainEvent, error) {
	payload := new(core.MoneyDeposited)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, payload)
	if err != nil {
		return core.MoneyDeposited{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return *payload, nil
}

func unmarshalMoneyWithdrawn(payloadJSON []byte) (core.DomainEvent, error) {
	payload := new(core.MoneyWithdrawn)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, payload)
	if err != nil {
		return core.MoneyWithdrawn{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return *payload, nil
}
