package gemini

// Card types in the model's response
const (
	cardTypeCloze = "cloze"
	cardTypeQA    = "qa"
)

// promptData represents the data passed to the prompt template
type promptData struct {
	Text  string
	Focus string
}

// responseCard is one element of the JSON array returned by the model.
// Cloze cards carry Content; question/answer cards carry Front and Back.
type responseCard struct {
	Type    string   `json:"type"`
	Chapter string   `json:"chapter,omitempty"`
	Content string   `json:"content,omitempty"`
	Front   string   `json:"front,omitempty"`
	Back    string   `json:"back,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Media   string   `json:"media,omitempty"`
}
