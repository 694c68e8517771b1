package shell

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/accountstreams/account-cqrs-go/eventstore"
)

// StreamPrefix is the namespace prefix of all account streams. It makes the
// projector's namespace filter on the all-streams feed possible.
const StreamPrefix = "bankAccount-"

// ErrNotAnAccountStream is returned when a stream id does not carry the account namespace prefix.
var ErrNotAnAccountStream = errors.New("stream id does not belong to the account namespace")

// StreamIDFor deterministically derives the stream id for an account identity.
func StreamIDFor(accountID uuid.UUID) eventstore.StreamID {
	return StreamPrefix + accountID.String()
}

// IsAccountStream reports whether the stream id belongs to the account namespace.
func IsAccountStream(streamID eventstore.StreamID) bool {
	return strings.HasPrefix(streamID, StreamPrefix)
}

// AccountIDFromStreamID recovers the account identity from a stream id.
func AccountIDFromStreamID(streamID eventstore.StreamID) (uuid.UUID, error) {
	if !IsAccountStream(streamID) {
		return uuid.Nil, ErrNotAnAccountStream
	}

	return uuid.Parse(strings.TrimPrefix(streamID, StreamPrefix))
}
