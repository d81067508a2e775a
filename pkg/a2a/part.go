package a2a

/*
Part is a discriminated union over the typed content blocks a message or
artifact may carry.  Only text parts are produced today; the shape leaves
room for file and data parts without custom JSON machinery.

Inbound payloads disagree on the discriminator key: some peers send "type",
others "kind".  Both are accepted; outbound parts always use "type".
*/
type Part struct {
	Type PartType `json:"type,omitempty"`
	Kind PartType `json:"kind,omitempty"`

	Text string         `json:"text,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// PartType is the discriminator for a Part union.
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeData PartType = "data"
)

func NewTextPart(text string) Part {
	return Part{
		Type: PartTypeText,
		Text: text,
	}
}

/*
IsText reports whether either discriminator marks the part as text.
*/
func (part Part) IsText() bool {
	return part.Type == PartTypeText || part.Kind == PartTypeText
}
