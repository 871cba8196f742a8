// Package llmtext pulls actionable values out of free-text agent responses.
package llmtext

import (
	"net/url"
	"regexp"
	"strings"
)

// SentinelPrefix marks an agent response that carries no actionable output.
const SentinelPrefix = "None"

var (
	linkRe = regexp.MustCompile(`https?://[^\s]+`)

	// prose punctuation that ends a sentence after a URL
	trailingPunct = `.,;:!?>"'` + "`"

	closers = map[byte]byte{')': '(', ']': '[', '}': '{'}
)

// IsSentinel reports whether an agent response is the "no result" marker.
func IsSentinel(resp string) bool {
	return strings.HasPrefix(strings.TrimSpace(resp), SentinelPrefix)
}

// ExtractURL returns the first http-prefixed token in resp. ok is false when the
// response is a sentinel or contains no usable http(s) URL.
func ExtractURL(resp string) (string, bool) {
	urls := ExtractURLs(resp)
	if len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}

// ExtractURLs is URLTokens for agent responses: a sentinel yields nothing.
func ExtractURLs(resp string) []string {
	if IsSentinel(resp) {
		return nil
	}
	return URLTokens(resp)
}

// URLTokens scans whitespace-separated tokens, drops anything before an
// embedded "http" and keeps the tokens that parse as absolute http(s) URLs.
func URLTokens(s string) []string {
	var out []string
	for _, word := range strings.Fields(s) {
		idx := strings.Index(word, "http")
		if idx < 0 {
			continue
		}
		candidate := trimURL(word[idx:])
		if IsHTTPURL(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// trimURL strips trailing prose punctuation. A closing bracket is only
// stripped when the token holds no matching opener, so
// ".../wiki/Go_(programming_language)" survives intact.
func trimURL(s string) string {
	for len(s) > 0 {
		last := s[len(s)-1]
		if strings.IndexByte(trailingPunct, last) >= 0 {
			s = s[:len(s)-1]
			continue
		}
		if opener, ok := closers[last]; ok && strings.Count(s, string(last)) > strings.Count(s, string(opener)) {
			s = s[:len(s)-1]
			continue
		}
		break
	}
	return s
}

// IsHTTPURL reports whether raw is an absolute URL with an http or https scheme and a host.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FindLinks returns every http(s) link embedded in user input, in order.
func FindLinks(input string) []string {
	return linkRe.FindAllString(input, -1)
}

// SplitQueries turns a newline-delimited agent response into search strings,
// stripping list numbering such as "1. " and dropping blank lines.
func SplitQueries(resp string) []string {
	var out []string
	for _, line := range strings.Split(resp, "\n") {
		q := strings.TrimSpace(strings.TrimLeft(line, "0123456789. "))
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}
