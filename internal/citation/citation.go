// Package citation implements the text heuristics that decide whether, where,
// and how prominently a company is mentioned inside a stored answer. All
// functions are pure: identical inputs always produce identical output.
package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/variants"
)

// Analysis is the citation outcome for a single answer.
type Analysis struct {
	Cited    bool `json:"cited"`
	Rank     *int `json:"rank"`
	Mentions int  `json:"mentions"`
	Position *int `json:"position"`
}

// rankPatterns are tried in priority order against each line that contains a
// variant. The first line in document order that matches any pattern wins;
// document position takes priority over pattern specificity.
//
// Known limitation: a long answer with several independent numbered lists can
// yield the rank of an unrelated line that merely also contains the company
// name. True list-structure parsing is deliberately out of scope.
var rankPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*[\*\-]*\s*\**(\d{1,2})[.):\-\s]`), // "1. ", "**1. ", "- 1. "
	regexp.MustCompile(`^\s*#(\d{1,2})\b`),                    // "#1"
	regexp.MustCompile(`^\s*\[?(\d{1,2})\]?\s*[.):\-]`),       // "[1]", "1:"
	regexp.MustCompile(`^\s*[\*\-]+\s*\**(\d{1,2})\**`),       // "- **1**"
}

const (
	minRank = 1
	maxRank = 50
)

// Analyze scans an answer for mentions of the given company. Empty text or
// an empty company input yields the zero, non-cited result, as does text in
// which no variant occurs.
func Analyze(text, companyInput string) Analysis {
	none := Analysis{Cited: false, Rank: nil, Mentions: 0, Position: nil}
	if text == "" || companyInput == "" {
		return none
	}

	vars := variants.ForCompany(companyInput)
	textL := strings.ToLower(text)

	cited := false
	for _, v := range vars {
		if strings.Contains(textL, v) {
			cited = true
			break
		}
	}
	if !cited {
		return none
	}

	return Analysis{
		Cited:    true,
		Rank:     findNumberedRank(text, vars),
		Mentions: countMentions(textL, vars),
		Position: findMentionPosition(text, vars),
	}
}

// findNumberedRank returns the list position of the first line that both
// contains a variant and starts like a numbered-list entry.
func findNumberedRank(text string, vars []string) *int {
	for _, line := range strings.Split(text, "\n") {
		lineL := strings.ToLower(line)

		hasVariant := false
		for _, v := range vars {
			if strings.Contains(lineL, v) {
				hasVariant = true
				break
			}
		}
		if !hasVariant {
			continue
		}

		for _, pattern := range rankPatterns {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			rank, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if rank >= minRank && rank <= maxRank {
				return &rank
			}
		}
	}
	return nil
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// findMentionPosition returns the 1-based paragraph index of the first
// mention. When the paragraph pass finds nothing (single-paragraph or
// pathological input) it falls back to counting lines, skipping short ones.
func findMentionPosition(text string, vars []string) *int {
	pos := 0
	for _, section := range paragraphSplit.Split(text, -1) {
		if strings.TrimSpace(section) == "" {
			continue
		}
		pos++
		sectionL := strings.ToLower(section)
		for _, v := range vars {
			if strings.Contains(sectionL, v) {
				p := pos
				return &p
			}
		}
	}

	pos = 0
	for _, line := range strings.Split(text, "\n") {
		if len(strings.TrimSpace(line)) <= 5 {
			continue
		}
		pos++
		lineL := strings.ToLower(line)
		for _, v := range vars {
			if strings.Contains(lineL, v) {
				p := pos
				return &p
			}
		}
	}

	return nil
}

// countMentions sums non-overlapping occurrences of each variant across the
// full text. A region matched by one variant may be counted again under a
// different variant ("sirion" also matches inside "sirion.ai"); this
// cross-variant double counting is accepted heuristic behavior.
func countMentions(textL string, vars []string) int {
	count := 0
	for _, v := range vars {
		for idx := 0; ; {
			i := strings.Index(textL[idx:], v)
			if i < 0 {
				break
			}
			count++
			idx += i + len(v)
		}
	}
	return count
}
