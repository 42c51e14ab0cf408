package platforms

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
)

// Demo mode produces realistic-looking ranked answers locally so the full
// audit flow can be exercised without spending on real API calls. Selected
// by the reserved credentials "demo", "test" or "free".

var demoCompanies = []string{
	"Icertis", "DocuSign", "Ironclad", "Agiloft", "Sirion",
	"ContractPodAi", "Juro", "LinkSquares", "Conga", "SAP Ariba",
	"Coupa", "Concord", "PandaDoc", "Precisely", "Onit",
}

var demoDescriptions = []string{
	"Known for enterprise-grade features and AI-powered analytics.",
	"Offers comprehensive lifecycle management with strong integrations.",
	"Popular for its user-friendly interface and automation capabilities.",
	"Provides end-to-end contract management with compliance tracking.",
	"Features advanced AI for contract analysis and risk assessment.",
	"Trusted by Fortune 500 companies for complex contract workflows.",
	"Offers robust API integrations and customizable workflows.",
	"Known for rapid implementation and excellent customer support.",
}

func demoIntro(platform models.Platform, question string) string {
	switch platform {
	case models.PlatformChatGPT:
		return "Great question! Here are some of the top platforms in this space:"
	case models.PlatformGemini:
		return "Here's a comprehensive overview of the leading platforms:"
	default:
		q := question
		if len(q) > 60 {
			q = q[:60]
		}
		return fmt.Sprintf("Based on current market analysis, here are the leading solutions relevant to your question: %q...", q)
	}
}

// generateDemoAnswer builds a shuffled numbered list of 5-7 filler vendors
// in the platform's answering style.
func generateDemoAnswer(platform models.Platform, question string) string {
	shuffled := make([]string, len(demoCompanies))
	copy(shuffled, demoCompanies)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	top := shuffled[:5+rand.Intn(3)]

	var b strings.Builder
	b.WriteString(demoIntro(platform, question))
	b.WriteString("\n\n")
	for i, company := range top {
		desc := demoDescriptions[i%len(demoDescriptions)]
		fmt.Fprintf(&b, "%d. **%s** — %s\n", i+1, company, desc)
	}
	b.WriteString("\nEach of these platforms offers unique strengths. The best choice depends on your specific requirements, budget, and integration needs.")
	return b.String()
}

// callDemo simulates API latency (800-2500ms) and returns a synthetic
// answer. It cannot fail except through context cancellation.
func callDemo(ctx context.Context, platform models.Platform, question string) (Result, error) {
	start := time.Now()
	delay := time.Duration(800+rand.Intn(1700)) * time.Millisecond

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(delay):
	}

	return Result{
		Answer:         generateDemoAnswer(platform, question),
		ResponseTimeMs: int(time.Since(start).Milliseconds()),
	}, nil
}
