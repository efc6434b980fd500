package natsbus

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrEthical07/iammetrics"
)

const (
	KindUser  = "user"
	KindAdmin = "admin"
)

var ErrMalformedEnvelope = errors.New("malformed event envelope")

// Envelope is the wire form of one event.
type Envelope struct {
	Kind  string                       `json:"kind"`
	Event *iammetrics.DomainEvent      `json:"event,omitempty"`
	Admin *iammetrics.AdminDomainEvent `json:"adminEvent,omitempty"`
}

// EncodeUser wraps ev in a user envelope.
func EncodeUser(ev iammetrics.DomainEvent) ([]byte, error) {
	return json.Marshal(Envelope{Kind: KindUser, Event: &ev})
}

// EncodeAdmin wraps ev in an admin envelope.
func EncodeAdmin(ev iammetrics.AdminDomainEvent) ([]byte, error) {
	return json.Marshal(Envelope{Kind: KindAdmin, Admin: &ev})
}

// Decode parses and checks an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	switch env.Kind {
	case KindUser:
		if env.Event == nil || env.Event.Type == "" {
			return Envelope{}, fmt.Errorf("%w: user envelope without event type", ErrMalformedEnvelope)
		}
	case KindAdmin:
		if env.Admin == nil {
			return Envelope{}, fmt.Errorf("%w: admin envelope without event", ErrMalformedEnvelope)
		}
	default:
		return Envelope{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedEnvelope, env.Kind)
	}
	return env, nil
}
