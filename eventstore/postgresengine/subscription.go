package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/accountstreams/account-cqrs-go/eventstore"
)

const (
	logMsgSubscriptionStarted = "subscription started"
	logMsgSubscriptionStopped = "subscription stopped"
	logMsgSubscriptionFailed  = "subscription poll failed"

	logAttrAfterPosition = "after_position"
)

// SubscribeToAll starts a subscription delivering every event across all
// streams with a global position greater than afterPosition, in global
// position order. The subscription polls the events table and idles for the
// configured poll interval once it has caught up with the head of the log.
//
// Cancel the context to stop consuming; in-flight delivery finishes and the
// subscription closes with a nil Err.
func (es EventStore) SubscribeToAll(ctx context.Context, afterPosition eventstore.GlobalPosition) *eventstore.Subscription {
	sub := eventstore.NewSubscription()

	es.logOperation(logMsgSubscriptionStarted, logAttrAfterPosition, afterPosition)

	go es.runSubscription(ctx, sub, afterPosition)

	return sub
}

func (es EventStore) runSubscription(ctx context.Context, sub *eventstore.Subscription, afterPosition eventstore.GlobalPosition) {
	position := afterPosition

	for {
		batch, readErr := es.ReadAllAfter(ctx, position, es.subscriptionBatchSize)
		if readErr != nil {
			if ctx.Err() != nil {
				sub.Close(nil) // canceled while polling, clean shutdown
				es.logOperation(logMsgSubscriptionStopped, logAttrAfterPosition, position)

				return
			}

			if es.logger != nil {
				es.logger.Error(logMsgSubscriptionFailed, logAttrError, readErr.Error())
			}

			sub.Close(errors.Join(eventstore.ErrSubscriptionFailed, readErr))

			return
		}

		for _, event := range batch {
			if !sub.Deliver(ctx, event) {
				sub.Close(nil)
				es.logOperation(logMsgSubscriptionStopped, logAttrAfterPosition, position)

				return
			}

			position = event.GlobalPosition
		}

		if len(batch) < int(es.subscriptionBatchSize) {
			select {
			case <-time.After(es.pollInterval):
			case <-ctx.Done():
				sub.Close(nil)
				es.logOperation(logMsgSubscriptionStopped, logAttrAfterPosition, position)

				return
			}
		}
	}
}
