package eventstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountstreams/account-cqrs-go/eventstore"
)

func Test_BuildStorableEvent_Success(t *testing.T) {
	// act
	event, err := eventstore.BuildStorableEvent(
		"AccountCreated",
		time.Unix(0, 0).UTC(),
		[]byte(`{"owner": "Alice"}`),
		[]byte(`{"messageId": "5a2b8c1e-0000-0000-0000-000000000000"}`),
	)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "AccountCreated", event.EventType)
}

func Test_BuildStorableEvent_FailsWithInvalidPayloadJSON(t *testing.T) {
	// act
	_, err := eventstore.BuildStorableEvent(
		"AccountCreated",
		time.Unix(0, 0).UTC(),
		[]byte(`{"owner": `),
		[]byte(`{}`),
	)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrInvalidPayloadJSON)
}

func Test_BuildStorableEvent_FailsWithInvalidMetadataJSON(t *testing.T) {
	// act
	_, err := eventstore.BuildStorableEvent(
		"AccountCreated",
		time.Unix(0, 0).UTC(),
		[]byte(`{}`),
		[]byte(`not json`),
	)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrInvalidMetadataJSON)
}

func Test_BuildStorableEventWithEmptyMetadata_Success(t *testing.T) {
	// act
	event, err := eventstore.BuildStorableEventWithEmptyMetadata(
		"AccountCreated",
		time.Unix(0, 0).UTC(),
		[]byte(`{}`),
	)

	// assert
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(event.MetadataJSON))
}
