package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownType      = errors.New("unknown message type")
)

// DecodeError describes an inbound frame that could not be turned into a
// message. Tag is empty when the envelope itself was unreadable.
type DecodeError struct {
	Tag string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("decode frame: %v", e.Err)
	}
	return fmt.Sprintf("decode %s frame: %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func Encode(msg Outbound) ([]byte, error) {
	var payload any
	switch m := msg.(type) {
	case Play, Pause:
	case ChangeURL:
		payload = m
	case Seek:
		payload = m
	default:
		return nil, fmt.Errorf("unsupported outbound message %T", msg)
	}

	env := envelope{Type: msg.Type()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", msg.Type(), err)
		}
		env.Payload = raw
	}

	return json.Marshal(env)
}

// Decode parses a frame. Unknown tags yield an Unrecognized message together
// with a DecodeError wrapping ErrUnknownType.
func Decode(frame []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrMalformedFrame, err)}
	}
	if env.Type == "" {
		return nil, &DecodeError{Err: fmt.Errorf("%w: missing type", ErrMalformedFrame)}
	}

	switch env.Type {
	case TypeSyncState:
		return decodePayload[SyncState](env)
	case TypePlay:
		return Play{}, nil
	case TypePause:
		return Pause{}, nil
	case TypeChangeURL:
		return decodePayload[ChangeURL](env)
	case TypeSeek:
		return decodePayload[Seek](env)
	default:
		return Unrecognized{Tag: env.Type}, &DecodeError{Tag: env.Type, Err: ErrUnknownType}
	}
}

func decodePayload[T Inbound](env envelope) (Inbound, error) {
	var msg T
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil, &DecodeError{Tag: env.Type, Err: fmt.Errorf("%w: missing payload", ErrMalformedPayload)}
	}
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		return nil, &DecodeError{Tag: env.Type, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}

	return msg, nil
}
