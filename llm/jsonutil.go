package llm

import (
	"regexp"
	"strings"
)

// Patterns for pulling JSON out of chatty LLM replies.
var (
	fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	rawObject    = regexp.MustCompile(`(?s)\{.*\}`)
	fencedArray  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	rawArray     = regexp.MustCompile(`(?s)\[.*\]`)
	// trailingComma matches a comma directly before a closing bracket or brace.
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON returns the first JSON object found in an LLM reply, preferring a
// fenced block, with line comments and trailing commas removed. Returns "" when
// the reply holds no object.
func ExtractJSON(content string) string {
	return extract(content, fencedObject, rawObject)
}

// ExtractJSONArray is ExtractJSON for a top-level JSON array.
func ExtractJSONArray(content string) string {
	return extract(content, fencedArray, rawArray)
}

func extract(content string, fenced, raw *regexp.Regexp) string {
	if m := fenced.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := raw.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

// cleanJSON drops // comments outside string literals and trailing commas,
// both of which models like to emit.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingComma.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment cuts a line at the first // that is not inside a string.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		switch ch := line[i]; {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

// StripCodeFence removes a markdown fence wrapped around an LLM reply.
// When the text starts with ``` its first line is dropped, and the last line
// is dropped too if it is a closing ```. Other text is returned unchanged.
func StripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) == 1 {
		return ""
	}
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		return strings.Join(lines[1:len(lines)-1], "\n")
	}
	return strings.Join(lines[1:], "\n")
}
