package a2a

import "strings"

/*
Message represents all non‑artifact communication between client & agent.
*/
type Message struct {
	Role     string         `json:"role"`
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewTextMessage(role string, text string) Message {
	return Message{
		Role:  role,
		Parts: []Part{NewTextPart(text)},
	}
}

/*
Text flattens the message into a single string by concatenating every text
part in order.  Non-text parts are skipped.
*/
func (msg Message) Text() string {
	var sb strings.Builder

	for _, part := range msg.Parts {
		if part.IsText() {
			sb.WriteString(part.Text)
		}
	}

	return sb.String()
}
