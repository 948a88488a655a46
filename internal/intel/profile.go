// Package intel tags text with threat categories, attacker tactics, and
// literal indicators (CVE ids, ATT&CK technique codes). Extraction is a pure
// function over the input text: no state, no I/O, deterministic output.
package intel

import (
	"regexp"
	"sort"
	"strings"
)

// Profile is the threat posture extracted from one piece of text. Tags and
// Tactics follow pattern-table declaration order; Indicators are upper-cased,
// de-duplicated, and sorted.
type Profile struct {
	Tags       []string `json:"tags"`
	Tactics    []string `json:"tactics"`
	Indicators []string `json:"indicators"`
}

type pattern struct {
	tag string
	re  *regexp.Regexp
}

// Threat category table. Order here is the order tags appear in a profile,
// so entries must not be re-sorted.
var threatPatterns = []pattern{
	{"ransomware", regexp.MustCompile(`(?i)\bransomware\b`)},
	{"phishing", regexp.MustCompile(`(?i)\bphish(?:ing|ed|er)?\b`)},
	{"supply_chain", regexp.MustCompile(`(?i)\bsupply[ -]chain\b`)},
	{"zero_day", regexp.MustCompile(`(?i)\bzero[ -]day\b`)},
	{"credential_theft", regexp.MustCompile(`(?i)\b(?:credential|password)s?\b`)},
	{"cloud_security", regexp.MustCompile(`(?i)\b(?:cloud|container|kubernetes|iam)\b`)},
	{"malware", regexp.MustCompile(`(?i)\b(?:malware|trojan|loader)\b`)},
	{"c2", regexp.MustCompile(`(?i)\b(?:command[ -]and[ -]control|c2)\b`)},
	{"vulnerability", regexp.MustCompile(`(?i)\b(?:cve-\d{4}-\d{4,}|vulnerabilit(?:y|ies))\b`)},
}

// MITRE-style tactic table, same matching rules as threat categories.
var tacticPatterns = []pattern{
	{"initial_access", regexp.MustCompile(`(?i)\b(?:initial access|spear[ -]?phish(?:ing)?|drive[ -]by)\b`)},
	{"execution", regexp.MustCompile(`(?i)\b(?:execution|powershell|shellcode)\b`)},
	{"persistence", regexp.MustCompile(`(?i)\b(?:persistence|scheduled task|registry run)\b`)},
	{"privilege_escalation", regexp.MustCompile(`(?i)\b(?:privilege escalation|escalat(?:e|ed|ion))\b`)},
	{"defense_evasion", regexp.MustCompile(`(?i)\b(?:defense evasion|obfuscat(?:e|ed|ion)|masquerad(?:e|ing))\b`)},
	{"lateral_movement", regexp.MustCompile(`(?i)\b(?:lateral movement|psexec|pass[ -]the[ -]hash)\b`)},
	{"collection_exfiltration", regexp.MustCompile(`(?i)\b(?:exfiltrat(?:e|ed|ion)|collection|data staging)\b`)},
}

var (
	cveRE       = regexp.MustCompile(`(?i)\bCVE-\d{4}-\d{4,}\b`)
	techniqueRE = regexp.MustCompile(`(?i)\bT\d{4}(?:\.\d{3})?\b`)
)

// Extract scans text and returns its threat profile. Identical input always
// yields an identical profile.
func Extract(text string) Profile {
	profile := Profile{
		Tags:       matchTable(threatPatterns, text),
		Tactics:    matchTable(tacticPatterns, text),
		Indicators: extractIndicators(text),
	}
	return profile
}

func matchTable(table []pattern, text string) []string {
	tags := make([]string, 0, len(table))
	for _, entry := range table {
		if entry.re.MatchString(text) {
			tags = append(tags, entry.tag)
		}
	}
	return tags
}

func extractIndicators(text string) []string {
	seen := make(map[string]struct{})
	indicators := make([]string, 0)
	collect := func(matches []string) {
		for _, m := range matches {
			canonical := strings.ToUpper(m)
			if _, ok := seen[canonical]; ok {
				continue
			}
			seen[canonical] = struct{}{}
			indicators = append(indicators, canonical)
		}
	}
	collect(cveRE.FindAllString(text, -1))
	collect(techniqueRE.FindAllString(text, -1))
	sort.Strings(indicators)
	return indicators
}
