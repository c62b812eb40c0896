package gancube

import "errors"

// Sentinel errors for the gancube package.
var (
	// Decryption errors
	ErrShortPacket = errors.New("gancube: packet too short to decrypt")

	// Parsing errors
	ErrInvalidAddress  = errors.New("gancube: invalid hardware address")
	ErrUnknownCryptKey = errors.New("gancube: unknown encryption key family")
	ErrInvalidNotation = errors.New("gancube: invalid move notation")
)

// DecodeError is the reason a decrypted notification could not be turned
// into an event. Decode errors are per-notification; the stream carries on.
type DecodeError int

const (
	// ErrInvalidLength means the buffer is too short for the record its
	// discriminant announces.
	ErrInvalidLength DecodeError = iota + 1
	// ErrUnknownEventType means the discriminant is not a supported event.
	ErrUnknownEventType
)

func (e DecodeError) Error() string {
	switch e {
	case ErrInvalidLength:
		return "gancube: invalid event length"
	case ErrUnknownEventType:
		return "gancube: unknown event type"
	default:
		return "gancube: decode error"
	}
}

// Reason returns a short label for the failure, suitable for metrics and
// storage.
func (e DecodeError) Reason() string {
	switch e {
	case ErrInvalidLength:
		return "invalid_length"
	case ErrUnknownEventType:
		return "unknown_event_type"
	default:
		return "unknown"
	}
}

// FailureReason returns a short label for an error found in a Result.
func FailureReason(err error) string {
	var de DecodeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &de):
		return de.Reason()
	case errors.Is(err, ErrShortPacket):
		return "short_packet"
	default:
		return "unknown"
	}
}
