// Package secretscan implements the fixed-pattern secret scanner the
// export pipeline uses to decide whether a bundle may be produced.
// Conservative by design: false positives are safer than false negatives.
package secretscan

import "regexp"

// Version identifies the pattern set embedded in export manifests and
// refusal reports, so a finding can always be traced back to the exact
// rule set that produced it.
const Version = "secret-scanner-v0.1"

// Pattern is one named detection rule.
type Pattern struct {
	Name     string
	Category string
	Regex    *regexp.Regexp
}

// Match is one location a Pattern fired on.
type Match struct {
	PatternName string
	MatchedText string
	Offset      int
}

var patterns = []Pattern{
	{Name: "aws_access_key", Category: "api_key", Regex: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{Name: "aws_secret_key", Category: "api_key", Regex: regexp.MustCompile(`(?i)aws_secret_access_key\s*[=:]\s*[A-Za-z0-9/+=]{40}`)},
	{Name: "openai_key", Category: "api_key", Regex: regexp.MustCompile(`sk-[A-Za-z0-9]{48}`)},
	{Name: "anthropic_key", Category: "api_key", Regex: regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{90,}`)},
	{Name: "generic_api_key", Category: "api_key", Regex: regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[=:]\s*['"]?[A-Za-z0-9_-]{20,}['"]?`)},
	{Name: "github_token", Category: "api_key", Regex: regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`)},
	{Name: "jwt_token", Category: "token", Regex: regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)},
	{Name: "bearer_token", Category: "token", Regex: regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_-]{20,}`)},
	{Name: "password", Category: "secret", Regex: regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`)},
	{Name: "secret", Category: "secret", Regex: regexp.MustCompile(`(?i)secret\s*[=:]\s*['"]?[A-Za-z0-9_/+=.-]{16,}['"]?`)},
	{Name: "private_key", Category: "secret", Regex: regexp.MustCompile(`-----BEGIN\s+(RSA|EC|DSA|OPENSSH|PGP)?\s*PRIVATE KEY-----`)},
	{Name: "email", Category: "pii", Regex: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{Name: "phone", Category: "pii", Regex: regexp.MustCompile(`(?:\+1[-.\s]?)?(?:\(?\d{3}\)?[-.\s]?)?\d{3}[-.\s]?\d{4}`)},
}

// Patterns returns the fixed pattern set, in the order matches are
// reported for a given piece of content.
func Patterns() []Pattern { return patterns }

// ScanText scans content for every pattern in order and returns all
// matches, in pattern order then left-to-right within each pattern.
func ScanText(content string) []Match {
	var matches []Match
	for _, p := range patterns {
		for _, loc := range p.Regex.FindAllStringIndex(content, -1) {
			matches = append(matches, Match{
				PatternName: p.Name,
				MatchedText: content[loc[0]:loc[1]],
				Offset:      loc[0],
			})
		}
	}
	return matches
}

// ScanBytes treats content as UTF-8, replacing invalid sequences the way
// Rust's String::from_utf8_lossy does, so secrets embedded in otherwise
// binary blob content are still caught in their text-like regions.
func ScanBytes(content []byte) []Match {
	return ScanText(toUTF8Lossy(content))
}

// RedactMatch shows the first and last four characters with asterisks in
// between, or an all-asterisk string of the same length when the matched
// text is eight characters or shorter.
func RedactMatch(matched string) string {
	n := len(matched)
	if n <= 8 {
		out := make([]byte, n)
		for i := range out {
			out[i] = '*'
		}
		return string(out)
	}
	return matched[:4] + "***" + matched[n-4:]
}
