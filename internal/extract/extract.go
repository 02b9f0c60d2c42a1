// Package extract locates an HTML document inside the loosely shaped JSON
// a workflow engine returns. The engine's response format is not under our
// control, so extraction is an ordered sequence of heuristics: known access
// paths first, then aggregated stream events, then a full recursive scan.
package extract

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// candidatePaths are probed in order against the top-level mapping. The
// order encodes a priority among known producer shapes, most specific
// first. Adding support for a new shape is a one-line insertion here.
var candidatePaths = [][]string{
	{"data", "outputs", "output"},
	{"data", "outputs", "html"},
	{"data", "outputs", "output_text"},
	{"data", "output"},
	{"data", "answer"},
	{"data", "text"},
	{"data"},
	{"output_text"},
	{"outputs", "html"},
	{"html"},
	{"output"},
	{"raw_text"},
	{"result"},
}

// Fence patterns allow three or more backticks, match case-insensitively
// and let the fenced body span lines. The unlabeled variants capture after
// the opening tag, so the tag is re-prefixed on extraction.
var fencePatterns = []struct {
	re     *regexp.Regexp
	prefix string
}{
	{regexp.MustCompile("(?is)`{3,}html\\s*\\n(.*?)`{3,}"), ""},
	{regexp.MustCompile("(?is)`{3,}\\s*\\n<!DOCTYPE html(.*?)`{3,}"), "<!DOCTYPE html"},
	{regexp.MustCompile("(?is)`{3,}\\s*\\n<html(.*?)`{3,}"), "<html"},
}

// HTML returns the most plausible HTML document embedded in v, or the
// empty string if none is found. The function is pure: it performs no I/O
// and does not mutate its input, so it is safe to call concurrently.
func HTML(v any) string {
	if v == nil {
		return ""
	}

	for _, path := range candidatePaths {
		val, ok := deepGet(v, path).(string)
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		if html := FromMarkdown(val); html != "" {
			return html
		}
		if looksLikeHTML(val) {
			return val
		}
	}

	if html, ok := fromEvents(v); ok {
		return html
	}

	return scan(v, map[uintptr]struct{}{})
}

// FromMarkdown extracts HTML from a fenced code block. Patterns are tried
// in order and only the first occurrence of a matching pattern is used; a
// reconstruction that does not look like HTML is treated as a non-match.
func FromMarkdown(text string) string {
	for _, p := range fencePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		content := strings.TrimSpace(m[1])
		if p.prefix != "" {
			content = p.prefix + content
		}
		if content != "" && looksLikeHTML(content) {
			return content
		}
	}
	return ""
}

// deepGet descends through nested mappings following path. Any component
// that is not a mapping, or a missing key, fails the whole lookup.
func deepGet(v any, path []string) any {
	cur := v
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[key]
		if !ok {
			return nil
		}
	}
	return cur
}

// fromEvents aggregates a streamed response that was collected into an
// "events" list. It prefers fenced HTML in the last event text, then in
// the newline-joined concatenation of all texts. Returning the last text
// verbatim when neither carries a fence is deliberate: some engines stream
// the document as plain text with no fences at all.
func fromEvents(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	events, ok := m["events"].([]any)
	if !ok {
		return "", false
	}

	var texts []string
	for _, e := range events {
		em, ok := e.(map[string]any)
		if !ok {
			continue
		}
		data, ok := em["data"].(map[string]any)
		if !ok {
			continue
		}
		text, ok := data["text"].(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		texts = append(texts, text)
	}
	if len(texts) == 0 {
		return "", false
	}

	last := texts[len(texts)-1]
	if html := FromMarkdown(last); html != "" {
		return html, true
	}
	if html := FromMarkdown(strings.Join(texts, "\n")); html != "" {
		return html, true
	}
	return last, true
}

// scan walks the whole value depth-first looking for the first string that
// extracts or already looks like HTML. Strings that appear to be embedded
// JSON documents are parsed once and descended into. Container identity is
// tracked so reference cycles terminate; structural duplicates that are
// distinct containers are still visited.
func scan(v any, visited map[uintptr]struct{}) string {
	switch val := v.(type) {
	case string:
		if html := FromMarkdown(val); html != "" {
			return html
		}
		if looksLikeHTML(val) {
			return val
		}
		if nested, ok := parseEmbeddedJSON(val); ok {
			return scan(nested, visited)
		}
	case map[string]any:
		if len(val) == 0 {
			return ""
		}
		id := reflect.ValueOf(val).Pointer()
		if _, seen := visited[id]; seen {
			return ""
		}
		visited[id] = struct{}{}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if html := scan(val[k], visited); html != "" {
				return html
			}
		}
	case []any:
		if len(val) == 0 {
			return ""
		}
		id := reflect.ValueOf(val).Pointer()
		if _, seen := visited[id]; seen {
			return ""
		}
		visited[id] = struct{}{}
		for _, item := range val {
			if html := scan(item, visited); html != "" {
				return html
			}
		}
	}
	return ""
}

// parseEmbeddedJSON parses a string that looks like a self-contained JSON
// document. Parse failures are swallowed; the caller treats the string as
// plain text.
func parseEmbeddedJSON(s string) (any, bool) {
	t := strings.TrimSpace(s)
	if len(t) < 2 {
		return nil, false
	}
	wrapped := (strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}")) ||
		(strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"))
	if !wrapped {
		return nil, false
	}
	var out any
	if err := json.Unmarshal([]byte(t), &out); err != nil {
		return nil, false
	}
	return out, true
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype html")
}
