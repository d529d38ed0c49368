// Package extract turns raw job-posting text into candidate task strings.
// All functions are pure; the same input always yields the same output.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Source records which collection pass produced a task line.
type Source string

const (
	SourceBullet   Source = "bullet"
	SourceVerbline Source = "verbline"
)

// RawTask is one candidate task line pulled from a posting. Ephemeral,
// consumed by the scorer and never persisted.
type RawTask struct {
	Text   string
	Source Source
}

const (
	maxTasks      = 20
	maxTaskLength = 180
	minTaskLength = 10
	// Bullet extraction below this count triggers the verb-led fallback pass.
	minBulletYield = 3
)

var (
	sectionStartRe = regexp.MustCompile(`(?i)\b(aufgaben|tätigkeiten|taetigkeiten|verantwortlichkeiten|aufgabenbereich|responsibilities|your tasks|your role|duties|what you('|’)?ll do|what you will do)\b`)

	sectionEndRe = regexp.MustCompile(`(?i)\b(anforderungen|qualifikationen?|voraussetzungen|(dein|ihr) profil|your profile|wir bieten|das bieten wir|requirements|qualifications|what we offer|benefits|about us|über uns|nice to have)\b`)

	bulletRe = regexp.MustCompile(`^\s*(?:[-–—•*▪●◦·‣]|\d{1,2}[.)]|[a-zA-Z][.)])\s+(.+)$`)

	qualificationRe = regexp.MustCompile(`(?i)(abgeschlossen|studium|ausbildung|berufserfahrung|erfahrung (mit|in|als)|jahre[n]? erfahrung|kenntnisse|fließend|verhandlungssicher|zertifizierung|bachelor|master|diplom|degree|years? of experience|experience (with|in|as)|proficien|fluent|knowledge of|familiarity with|certification|track record)`)

	fluffRe = regexp.MustCompile(`(?i)(wir bieten|wir sind|wir suchen|unser (team|unternehmen)|flexible arbeitszeiten|homeoffice|home office|altersvorsorge|weiterbildungsmöglichkeiten|firmenwagen|team.?events?|we offer|we are|our (team|company)|competitive salary|flexible (hours|working)|health insurance|remote work|perks)`)

	markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	nonAlnumRe     = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// German and English action verbs (and verbal nouns) that open task lines.
var taskVerbs = []string{
	"entwicklung", "entwickeln", "erstellung", "erstellen", "pflege", "pflegen",
	"betreuung", "betreuen", "durchführung", "durchführen", "planung", "planen",
	"koordination", "koordinieren", "optimierung", "optimieren", "analyse",
	"analysieren", "verwaltung", "verwalten", "umsetzung", "bearbeitung",
	"überwachung", "dokumentation", "abstimmung", "unterstützung", "mitarbeit",
	"auswertung", "prüfung", "organisation", "kontieren", "verbuchen",
	"develop", "create", "manage", "maintain", "coordinate", "analyze",
	"analyse", "implement", "design", "plan", "monitor", "prepare", "support",
	"execute", "organize", "review", "process", "track", "report", "build",
	"write", "conduct", "handle", "oversee", "drive",
}

type candidate struct {
	text   string
	source Source
}

// Tasks extracts a deduplicated, longest-first list of candidate task strings
// from a job posting. Empty input yields an empty (nil) result, not an error.
func Tasks(text string) []RawTask {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}

	scope := scopeLines(lines)

	var candidates []candidate
	for _, line := range scope {
		m := bulletRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rest := strings.TrimSpace(m[1])
		if !usable(rest) {
			continue
		}
		candidates = append(candidates, candidate{rest, SourceBullet})
	}

	// Postings without real bullet formatting still carry verb-led task lines.
	if len(candidates) < minBulletYield {
		for _, line := range scope {
			if bulletRe.MatchString(line) {
				continue
			}
			if !startsWithTaskVerb(line) || !usable(line) {
				continue
			}
			candidates = append(candidates, candidate{line, SourceVerbline})
		}
	}

	seen := make(map[string]bool)
	var out []RawTask
	for _, c := range candidates {
		t := truncateSmart(normalize(c.text), maxTaskLength)
		if len([]rune(t)) < minTaskLength {
			continue
		}
		// Verb-led collection does not exempt a line from the qualification
		// deny-list; re-check here.
		if qualificationRe.MatchString(t) {
			continue
		}
		key := dedupKey(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, RawTask{Text: t, Source: c.source})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return len([]rune(out[i].Text)) > len([]rune(out[j].Text))
	})
	if len(out) > maxTasks {
		out = out[:maxTasks]
	}
	return out
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// scopeLines narrows lines to the responsibilities section: everything after
// the first section-start marker, truncated at the first section-end marker.
// Without a start marker the whole posting is in scope.
func scopeLines(lines []string) []string {
	start := 0
	for i, l := range lines {
		if sectionStartRe.MatchString(l) && isSectionMarker(l) {
			start = i + 1
			break
		}
	}

	scope := lines[start:]
	for i, l := range scope {
		if sectionEndRe.MatchString(l) && isSectionMarker(l) {
			scope = scope[:i]
			break
		}
	}
	return scope
}

// isSectionMarker distinguishes section headers ("AUFGABEN:", "Your profile")
// from task lines that merely mention a section keyword.
func isSectionMarker(line string) bool {
	return strings.HasSuffix(strings.TrimSpace(line), ":") || len(strings.Fields(line)) <= 4
}

// usable applies the shared deny-lists to a candidate line.
func usable(line string) bool {
	if len([]rune(line)) < minTaskLength {
		return false
	}
	if isHeading(line) {
		return false
	}
	if fluffRe.MatchString(line) {
		return false
	}
	if qualificationRe.MatchString(line) {
		return false
	}
	return true
}

// isHeading reports whether a line looks like a section heading rather than
// content: it ends with a colon, or is a short all-caps run.
func isHeading(line string) bool {
	if strings.HasSuffix(strings.TrimSpace(line), ":") {
		return true
	}
	if len(strings.Fields(line)) <= 4 {
		hasLower := false
		for _, r := range line {
			if unicode.IsLower(r) {
				hasLower = true
				break
			}
		}
		if !hasLower && strings.IndexFunc(line, unicode.IsLetter) >= 0 {
			return true
		}
	}
	return false
}

func startsWithTaskVerb(line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], ".,;:")
	for _, v := range taskVerbs {
		if first == v {
			return true
		}
	}
	return false
}

// normalize strips markdown artifacts, collapses whitespace and trims
// boundary punctuation.
func normalize(s string) string {
	s = markdownLinkRe.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("**", "", "__", "", "`", "", "*", "", "_", " ").Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " \t-–—•·*:;,.!?")
	return strings.TrimSpace(s)
}

// truncateSmart shortens s to at most max runes, preferring a sentence
// boundary, then a word boundary, before a hard cut.
func truncateSmart(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, ". "); idx >= max/2 {
		return cut[:idx+1]
	}
	if idx := strings.LastIndex(cut, " "); idx >= max/2 {
		return strings.TrimRight(cut[:idx], " ,;:-")
	}
	return cut
}

// dedupKey lowercases and strips everything that is not a letter or digit so
// "Reports erstellen." and "reports erstellen" collapse to one entry.
func dedupKey(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}
