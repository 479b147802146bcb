package insights

import (
	"fmt"
	"strings"
)

const (
	// MaxContentRunes caps each source excerpt in the prompt
	MaxContentRunes = 1200

	// NoSources replaces the sources block when retrieval found nothing
	NoSources = "No sources found."

	ellipsis = "…"
)

// SystemInstruction is sent as the system message with every prompt
const SystemInstruction = "You are a marketing campaign analyst. Answer strictly from the provided sources. " +
	"If the sources do not contain the answer, say so. Reply with JSON only."

const promptTemplate = `You are a campaign insights assistant. Use ONLY the provided sources to answer the question.
Cite sources by their bracketed number, e.g. [1].

Question:
%s

Sources:
%s

Respond with JSON only, no markdown and no extra text, matching exactly:
{"summary": string, "keyPoints": string[], "recommendations": string[]}`

// Compose renders the grounded prompt for question over docs.
// Documents are numbered from 1 in the order given.
func Compose(question string, docs []Document) string {
	return fmt.Sprintf(promptTemplate, question, renderSources(docs))
}

func renderSources(docs []Document) string {
	if len(docs) == 0 {
		return NoSources
	}

	blocks := make([]string, len(docs))
	for i, doc := range docs {
		blocks[i] = fmt.Sprintf("[%d] %s (%s)\n%s",
			i+1, displayTitle(doc, i+1), locator(doc), excerpt(doc.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// excerpt trims content and caps it at MaxContentRunes code points
func excerpt(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= MaxContentRunes {
		return content
	}
	return string(runes[:MaxContentRunes]) + ellipsis
}
