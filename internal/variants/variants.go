// Package variants derives the lowercase search aliases used to match a
// company name or URL inside generated answer text. A single company shows
// up inconsistently across answers (full domain, bare brand, marketing
// name); matching the union of forms maximizes true positives while the
// minimum-length filter suppresses noise matches on short strings.
package variants

import "strings"

// knownTLDs is the closed list of suffixes stripped from domain-style
// inputs. Matching is exact on the final dot-separated label.
var knownTLDs = map[string]struct{}{
	"com": {}, "ai": {}, "io": {}, "co": {}, "net": {}, "org": {},
	"dev": {}, "app": {}, "xyz": {}, "tech": {}, "cloud": {},
	"software": {}, "us": {}, "uk": {}, "in": {},
}

const minVariantLen = 2

// ForCompany returns all search variants for a company name/URL, lowercased
// and de-duplicated, each at least two characters long.
//
//	"sirion.ai"        -> ["sirion.ai", "sirion"]
//	"Icertis"          -> ["icertis"]
//	"HubSpot CRM"      -> ["hubspot crm", "hubspot"]
//	"www.docusign.com" -> ["www.docusign.com", "docusign.com", "docusign"]
func ForCompany(companyInput string) []string {
	raw := strings.ToLower(strings.TrimSpace(companyInput))

	var out []string
	seen := make(map[string]struct{})
	add := func(v string) {
		if len(v) < minVariantLen {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(raw)

	stripped := stripTLD(raw)
	add(stripped)

	if noWWW := strings.TrimPrefix(raw, "www."); noWWW != raw {
		add(noWWW)
		add(stripTLD(noWWW))
	}

	// Brand-name heuristic: for multi-word names, the first word alone.
	words := strings.FieldsFunc(stripped, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	})
	if len(words) > 1 && len(words[0]) >= 3 {
		add(words[0])
	}

	return out
}

// stripTLD removes a trailing known TLD ("sirion.ai" -> "sirion"). Inputs
// without a recognized suffix are returned unchanged.
func stripTLD(s string) string {
	idx := strings.LastIndexByte(s, '.')
	if idx <= 0 {
		return s
	}
	if _, ok := knownTLDs[s[idx+1:]]; ok {
		return s[:idx]
	}
	return s
}
