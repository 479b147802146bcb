package insights

import "encoding/json"

// Document is a normalized search hit. URL is empty when no resolver is configured.
type Document struct {
	Title   string
	Content string
	Source  string
	URL     string
}

// MarshalJSON renders an empty URL as null
func (d Document) MarshalJSON() ([]byte, error) {
	var url *string
	if d.URL != "" {
		url = &d.URL
	}
	return json.Marshal(struct {
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Source  string  `json:"source"`
		URL     *string `json:"url"`
	}{d.Title, d.Content, d.Source, url})
}

// Citation points from a numbered prompt reference back to its document.
// Index is 1-based and matches the [i] marker the model was shown.
type Citation struct {
	Index  int    `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// RagAnswer is the structured answer requested from the model
type RagAnswer struct {
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"keyPoints"`
	Recommendations []string `json:"recommendations"`
}

// normalize replaces nil sequences with empty ones so they serialize as []
func (a RagAnswer) normalize() RagAnswer {
	if a.KeyPoints == nil {
		a.KeyPoints = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	return a
}

// AnswerEnvelope is the pipeline result
type AnswerEnvelope struct {
	Question  string     `json:"question"`
	Rag       RagAnswer  `json:"rag"`
	Citations []Citation `json:"citations"`
}

// Completion is the interpreted model output: either Parsed or Degraded.
type Completion interface {
	Answer() RagAnswer
	Degraded() bool
}

// Parsed is a completion that decoded into a RagAnswer
type Parsed struct {
	Rag RagAnswer
}

// Answer returns the decoded answer
func (p Parsed) Answer() RagAnswer { return p.Rag.normalize() }

// Degraded reports false
func (Parsed) Degraded() bool { return false }

// Unparsed is a completion that was not valid RagAnswer JSON
type Unparsed struct {
	Raw string
}

// Answer carries the raw text as the summary with no points or recommendations
func (u Unparsed) Answer() RagAnswer {
	return RagAnswer{Summary: u.Raw}.normalize()
}

// Degraded reports true
func (Unparsed) Degraded() bool { return true }
