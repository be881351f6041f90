package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dWire/lib/ids"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is the envelope of every message exchanged between activations.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// ID pairs a request with its response
	ID ids.CorrelationID `json:"id"`

	// Addressing
	Sender *ids.ActivationAddress `json:"sender,omitempty"` // Used for: all but OneWay messages
	Target *ids.ActivationAddress `json:"target,omitempty"` // Used for: all messages

	// Headers are free form request context, keys are unique
	Headers map[string]any `json:"headers,omitempty"`

	// Body is an *InvokeMethodRequest for requests and a *Response for responses
	Body any `json:"body,omitempty"`
}

// InvokeMethodRequest is the body of a request: which method of which
// interface to call, and with what arguments
type InvokeMethodRequest struct {
	InterfaceID int32 `json:"interface_id"`
	MethodID    int32 `json:"method_id"`
	Arguments   []any `json:"arguments,omitempty"`
}

// Response is the body of a response. If ExceptionFlag is set, Data holds
// the error instead of the result.
type Response struct {
	ExceptionFlag bool `json:"exception,omitempty"`
	Data          any  `json:"data,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a new request with a fresh correlation id
func NewRequest(sender, target *ids.ActivationAddress, req *InvokeMethodRequest) *Message {
	return &Message{
		MsgType: MsgTRequest,
		ID:      ids.NextCorrelationID(),
		Sender:  sender,
		Target:  target,
		Body:    req,
	}
}

// NewOneWayRequest creates a request that expects no response
func NewOneWayRequest(target *ids.ActivationAddress, req *InvokeMethodRequest) *Message {
	return &Message{
		MsgType: MsgTOneWay,
		ID:      ids.NextCorrelationID(),
		Target:  target,
		Body:    req,
	}
}

// NewResponse creates the response to request, sender and target are swapped
func NewResponse(request *Message, data any) *Message {
	return &Message{
		MsgType: MsgTResponse,
		ID:      request.ID,
		Sender:  request.Target,
		Target:  request.Sender,
		Body:    &Response{Data: data},
	}
}

// NewErrorResponse creates a response that carries err as exception
func NewErrorResponse(request *Message, err error) *Message {
	return &Message{
		MsgType: MsgTError,
		ID:      request.ID,
		Sender:  request.Target,
		Target:  request.Sender,
		Body:    &Response{ExceptionFlag: true, Data: err.Error()},
	}
}

// --------------------------------------------------------------------------
// Message Type Helper
// --------------------------------------------------------------------------

// MessageType defines the type of a message
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTRequest:
		return "request"
	case MsgTResponse:
		return "response"
	case MsgTOneWay:
		return "oneway"
	case MsgTError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "request":
		*t = MsgTRequest
	case "response":
		*t = MsgTResponse
	case "oneway":
		*t = MsgTOneWay
	case "error":
		*t = MsgTError
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown  MessageType = iota
	MsgTRequest              // Request that expects a response
	MsgTResponse             // Successful response
	MsgTOneWay               // Request without response
	MsgTError                // Response carrying an exception
)
