package classify

import "regexp"

// Jailbreak indicators in English and French. Matching a single pattern is
// enough; the orchestrator forces guardrails on and logs rather than
// rejecting the request outright.
var jailbreakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+(instructions|rules|prompts)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions|rules|guidelines)`),
	regexp.MustCompile(`(?i)(reveal|show|print|repeat)\s+(me\s+)?(your|the)\s+system\s+prompt`),
	regexp.MustCompile(`(?i)you\s+are\s+no\s+longer\s+(an?\s+)?assistant`),
	regexp.MustCompile(`(?i)pretend\s+(that\s+)?you\s+(are|have)\s+no\s+(rules|restrictions|guidelines)`),
	regexp.MustCompile(`(?i)\bact\s+as\s+(dan|an?\s+unrestricted)`),
	regexp.MustCompile(`(?i)ignore\s+(tes|les)\s+(instructions|consignes|règles)`),
	regexp.MustCompile(`(?i)oublie\s+(tes|toutes\s+les)\s+(instructions|consignes|règles)`),
	regexp.MustCompile(`(?i)(montre|révèle|affiche)\s*(-?\s*moi)?\s+(ton|le)\s+prompt\s+(système|initial)`),
}

// IsJailbreak reports whether the message matches a known prompt-override
// pattern.
func IsJailbreak(s string) bool {
	for _, re := range jailbreakPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
