package wire

import (
	"encoding/json"
	"strconv"
	"time"
)

// PushTypeData is the only push envelope type the server emits.
const PushTypeData = "data"

// Message is one board entry as it travels over every transport.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Seq returns the numeric form of the message id, or 0 if the id is not a
// decimal integer.
func (m Message) Seq() uint64 {
	n, err := strconv.ParseUint(m.ID, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Request is the body of a one-shot POST.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Error is one entry of a response's errors list.
type Error struct {
	Message string `json:"message"`
}

// Response is the body of a one-shot reply. Exactly one of Data and Errors
// is set.
type Response struct {
	Data   *Data   `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

// ErrorResponse builds a Response carrying a single error message.
func ErrorResponse(msg string) Response {
	return Response{Errors: []Error{{Message: msg}}}
}

// Data holds the result of either supported operation. When CreateMessage is
// set the list is not encoded.
type Data struct {
	Messages      []Message `json:"messages,omitempty"`
	CreateMessage *Message  `json:"createMessage,omitempty"`
}

// MarshalJSON always emits "messages" as an array for list results, even
// when the board is empty.
func (d Data) MarshalJSON() ([]byte, error) {
	if d.CreateMessage != nil {
		return json.Marshal(struct {
			CreateMessage *Message `json:"createMessage"`
		}{d.CreateMessage})
	}
	msgs := d.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(struct {
		Messages []Message `json:"messages"`
	}{msgs})
}

// Push is the envelope written to persistent connections.
type Push struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Payload is either a full snapshot (Messages) or one incremental message
// (MessageAdded).
type Payload struct {
	Messages     []Message `json:"messages,omitempty"`
	MessageAdded *Message  `json:"messageAdded,omitempty"`
}

// MarshalJSON mirrors Data.MarshalJSON: a snapshot of an empty board is
// encoded as "messages": [].
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.MessageAdded != nil {
		return json.Marshal(struct {
			MessageAdded *Message `json:"messageAdded"`
		}{p.MessageAdded})
	}
	msgs := p.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(struct {
		Messages []Message `json:"messages"`
	}{msgs})
}

// IsSnapshot reports whether the decoded payload carried a "messages" key.
func (p Payload) IsSnapshot() bool {
	return p.Messages != nil
}

// NewSnapshot builds the push sent once to every new connection.
func NewSnapshot(msgs []Message) Push {
	if msgs == nil {
		msgs = []Message{}
	}
	return Push{Type: PushTypeData, Payload: Payload{Messages: msgs}}
}

// NewMessageAdded builds the incremental push for one created message.
func NewMessageAdded(m Message) Push {
	return Push{Type: PushTypeData, Payload: Payload{MessageAdded: &m}}
}
