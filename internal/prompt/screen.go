// Package prompt flags text that tries to steer the model instead of informing it.
//
// Questions and retrieved documents both end up inside the completion prompt.
// Scan reports instruction-like passages so callers can log them. It never
// rewrites text: the answer must stay grounded in what the index holds.
package prompt

import (
	"regexp"
	"sort"
)

// Category classifies a suspicious passage
type Category string

const (
	CategoryInstructionOverride Category = "instruction_override"
	CategorySystemPromptLeak    Category = "system_prompt_leak"
	CategoryRoleManipulation    Category = "role_manipulation"
	CategoryDelimiter           Category = "delimiter"
)

// Finding is one matched passage
type Finding struct {
	Category Category
	Offset   int
	Match    string
}

type rule struct {
	category Category
	pattern  *regexp.Regexp
}

var rules = []rule{
	{CategoryInstructionOverride, regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+(instructions?|rules|prompts?|sources?)`)},
	{CategoryInstructionOverride, regexp.MustCompile(`(?i)override\s+(all|previous|system)\s+(instructions?|rules|settings?)`)},
	{CategoryInstructionOverride, regexp.MustCompile(`(?i)do\s+not\s+use\s+the\s+(provided\s+)?sources`)},
	{CategorySystemPromptLeak, regexp.MustCompile(`(?i)(show|reveal|print|repeat)\s+(me\s+)?(your|the)\s+(system|original|hidden)\s+(prompt|instructions?)`)},
	{CategoryRoleManipulation, regexp.MustCompile(`(?i)(you\s+are\s+now|from\s+now\s+on,?\s+you)\b`)},
	{CategoryRoleManipulation, regexp.MustCompile(`(?i)(pretend|act)\s+(to\s+be|as)\s+(a|an)\s+\w+`)},
	{CategoryDelimiter, regexp.MustCompile(`(?i)(\[/?(system|assistant|user)\]|<\|(system|assistant|user|end)\|>|###\s*(system|instruction))`)},
}

// Scan returns every suspicious passage in text ordered by offset
func Scan(text string) []Finding {
	var findings []Finding
	for _, r := range rules {
		for _, loc := range r.pattern.FindAllStringIndex(text, -1) {
			findings = append(findings, Finding{
				Category: r.category,
				Offset:   loc[0],
				Match:    text[loc[0]:loc[1]],
			})
		}
	}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Offset < findings[j].Offset })
	return findings
}

// Categories returns the distinct categories of findings in first-seen order
func Categories(findings []Finding) []string {
	seen := make(map[Category]bool, len(findings))
	var out []string
	for _, f := range findings {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, string(f.Category))
		}
	}
	return out
}
