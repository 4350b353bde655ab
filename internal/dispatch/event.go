// Package dispatch turns inbound activities into typed events and routes them to bot handlers.
package dispatch

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/h1v3-io/botsamples/pkg/schema"
)

// Event is the closed set of activity kinds a bot can be asked to handle.
// The only implementations are the variants in this file.
type Event interface {
	isEvent()
}

// Message is a message activity.
type Message struct {
	Text string
}

// LinkQuery is an app-based link unfurling invoke.
type LinkQuery struct {
	Query     schema.AppBasedLinkQuery
	Anonymous bool
}

// ExtensionQuery is a messaging extension search invoke.
type ExtensionQuery struct {
	Query schema.MessagingExtensionQuery
}

// Invoke is any invoke activity without a dedicated variant.
type Invoke struct {
	Name  string
	Value any
}

// Other is any non-message, non-invoke activity (conversationUpdate, typing, trace, ...).
type Other struct {
	Type schema.ActivityType
}

func (Message) isEvent()        {}
func (LinkQuery) isEvent()      {}
func (ExtensionQuery) isEvent() {}
func (Invoke) isEvent()         {}
func (Other) isEvent()          {}

// Decode classifies a and extracts its typed payload.
func Decode(a *schema.Activity) (Event, error) {
	switch a.Type {
	case schema.ActivityMessage:
		return Message{Text: a.Text}, nil
	case schema.ActivityInvoke:
		return decodeInvoke(a)
	default:
		return Other{Type: a.Type}, nil
	}
}

func decodeInvoke(a *schema.Activity) (Event, error) {
	switch a.Name {
	case schema.InvokeQueryLink, schema.InvokeAnonymousQueryLink:
		q, err := decodeValue[schema.AppBasedLinkQuery](a.Value)
		if err != nil {
			return nil, fmt.Errorf("dispatch: decode %s: %w", a.Name, err)
		}
		return LinkQuery{Query: q, Anonymous: a.Name == schema.InvokeAnonymousQueryLink}, nil
	case schema.InvokeQuery:
		q, err := decodeValue[schema.MessagingExtensionQuery](a.Value)
		if err != nil {
			return nil, fmt.Errorf("dispatch: decode %s: %w", a.Name, err)
		}
		return ExtensionQuery{Query: q}, nil
	default:
		return Invoke{Name: a.Name, Value: a.Value}, nil
	}
}

// decodeValue maps the loosely typed invoke value (as produced by encoding/json) onto T,
// using the json tags of the schema types. Values already of type T pass through.
func decodeValue[T any](value any) (T, error) {
	var out T
	switch v := value.(type) {
	case nil:
		return out, nil
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(value); err != nil {
		return out, err
	}
	return out, nil
}
