package responder

// Chat-completion requests arrive with content as either a bare string or a
// list of typed blocks.  Both variants are decoded explicitly; anything else
// is rejected when the text is first needed.

import "encoding/json"

/*
ChatMessage is one inbound OpenAI-style chat message.  Content stays raw
until Text resolves it against the known variants.
*/
type ChatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

/*
Text resolves the content union into plain text.  String content is returned
verbatim; block lists concatenate their text blocks with newlines.
Unrecognized shapes yield the empty string.
*/
func (msg ChatMessage) Text() string {
	var text string

	if err := json.Unmarshal(msg.Content, &text); err == nil {
		return text
	}

	var blocks []contentBlock

	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return ""
	}

	out := ""

	for _, block := range blocks {
		if block.Type != "text" || block.Text == "" {
			continue
		}

		if out != "" {
			out += "\n"
		}

		out += block.Text
	}

	return out
}

/*
LastUserText returns the text of the most recent user message, the query the
retrieval layer searches with.
*/
func LastUserText(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Text()
		}
	}

	return ""
}
