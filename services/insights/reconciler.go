package insights

import (
	"bytes"
	"encoding/json"
)

// Interpret decodes raw completion text. Anything that is not a JSON
// object of the answer shape comes back Unparsed; it is never an error.
func Interpret(raw string) Completion {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Unparsed{Raw: raw}
	}

	var answer RagAnswer
	if err := json.Unmarshal(trimmed, &answer); err != nil {
		return Unparsed{Raw: raw}
	}
	return Parsed{Rag: answer}
}

// Reconcile pairs the interpreted answer with one citation per document
func Reconcile(raw string, docs []Document) (RagAnswer, []Citation) {
	return Interpret(raw).Answer(), Citations(docs)
}
