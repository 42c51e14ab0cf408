// Package analyzer turns the stored responses of an audit session into
// per-question citation rows and per-platform summary statistics. Both
// entry points are pure functions over already-persisted data and may be
// invoked repeatedly, concurrently, for different target companies without
// re-running any platform calls.
package analyzer

import (
	"sort"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/citation"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
)

// PlatformResult pairs one platform's stored answer with its analysis.
type PlatformResult struct {
	Answer   string            `json:"answer"`
	Analysis citation.Analysis `json:"analysis"`
}

// AnalyzedRow is one question's citation outcome across all platforms.
type AnalyzedRow struct {
	QuestionIndex int                                `json:"questionIndex"`
	Question      string                             `json:"question"`
	Platforms     map[models.Platform]PlatformResult `json:"platforms"`
}

// PlatformSummary aggregates one platform's rows.
type PlatformSummary struct {
	TotalQuestions int      `json:"totalQuestions"`
	CitedCount     int      `json:"citedCount"`
	CitedPercent   float64  `json:"citedPercent"`
	AvgRank        *float64 `json:"avgRank"`
	TotalMentions  int      `json:"totalMentions"`
	RankedCount    int      `json:"rankedCount"`
}

// AnalyzeFullAudit groups responses by question and analyzes every known
// platform's answer for the target company. A platform with no stored
// response (cancelled mid-run, or skipped) is treated as an empty,
// non-citing answer, never as an error. Rows come back sorted by question
// index; the first-seen question text wins per group.
func AnalyzeFullAudit(responses []models.Response, companyInput string) []AnalyzedRow {
	type group struct {
		question string
		answers  map[models.Platform]string
	}
	grouped := make(map[int]*group)

	for _, rec := range responses {
		g, ok := grouped[rec.QuestionIndex]
		if !ok {
			g = &group{
				question: rec.Question,
				answers:  make(map[models.Platform]string),
			}
			grouped[rec.QuestionIndex] = g
		}
		g.answers[rec.Platform] = rec.Answer
	}

	indexes := make([]int, 0, len(grouped))
	for idx := range grouped {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	rows := make([]AnalyzedRow, 0, len(indexes))
	for _, idx := range indexes {
		g := grouped[idx]
		row := AnalyzedRow{
			QuestionIndex: idx,
			Question:      g.question,
			Platforms:     make(map[models.Platform]PlatformResult, 3),
		}
		for _, p := range models.AllPlatforms() {
			answer := g.answers[p]
			row.Platforms[p] = PlatformResult{
				Answer:   answer,
				Analysis: citation.Analyze(answer, companyInput),
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Summarize reduces analyzed rows into per-platform statistics. Safe on zero
// rows: percentages are 0 and AvgRank is nil rather than a division fault.
func Summarize(rows []AnalyzedRow) map[models.Platform]PlatformSummary {
	summary := make(map[models.Platform]PlatformSummary, 3)

	for _, p := range models.AllPlatforms() {
		var s PlatformSummary
		rankSum := 0

		for _, row := range rows {
			res := row.Platforms[p].Analysis
			s.TotalQuestions++
			if !res.Cited {
				continue
			}
			s.CitedCount++
			// Mentions are summed over cited rows only; by construction
			// a non-cited analysis has zero mentions anyway.
			s.TotalMentions += res.Mentions
			if res.Rank != nil {
				s.RankedCount++
				rankSum += *res.Rank
			}
		}

		if s.TotalQuestions > 0 {
			s.CitedPercent = float64(s.CitedCount) / float64(s.TotalQuestions) * 100
		}
		if s.RankedCount > 0 {
			avg := float64(rankSum) / float64(s.RankedCount)
			s.AvgRank = &avg
		}
		summary[p] = s
	}

	return summary
}
