package a2a

/*
Artifact is a named output bundle attached to a task.
*/
type Artifact struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Parts       []Part  `json:"parts"`
}

// ArtifactNameResponse is the artifact name attached by a successful send.
const ArtifactNameResponse = "response"

func NewTextArtifact(name string, text string) Artifact {
	return Artifact{
		Name:  &name,
		Parts: []Part{NewTextPart(text)},
	}
}
