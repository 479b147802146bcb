package insights

import "fmt"

// Prompt blocks and citations share these so numbering and labels never drift.

func displayTitle(doc Document, index int) string {
	if doc.Title != "" {
		return doc.Title
	}
	return fmt.Sprintf("Doc %d", index)
}

func locator(doc Document) string {
	switch {
	case doc.URL != "":
		return doc.URL
	case doc.Source != "":
		return doc.Source
	default:
		return "unknown"
	}
}

// Citations derives one citation per document in order, 1-based
func Citations(docs []Document) []Citation {
	out := make([]Citation, len(docs))
	for i, doc := range docs {
		out[i] = Citation{
			Index:  i + 1,
			Title:  displayTitle(doc, i+1),
			Source: locator(doc),
		}
	}
	return out
}
