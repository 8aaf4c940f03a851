// Package textutil normalizes task text and scores similarity between
// normalized token sets, for use by the Matcher.
package textutil

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	urlPattern        = regexp.MustCompile(`https?://[^\s]+`)
	markdownEmphasis  = regexp.MustCompile("[*_~`#]")
	nonWordSeparators = regexp.MustCompile(`[^\w\s]`)
)

// Normalize lowercases text, explodes any URLs into host/path tokens, strips
// markdown emphasis markers and punctuation, and splits into tokens.
func Normalize(text string) []string {
	if text == "" {
		return nil
	}

	text = strings.ToLower(text)

	text = urlPattern.ReplaceAllStringFunc(text, func(u string) string {
		return strings.Join(urlToTokens(u), " ")
	})

	text = markdownEmphasis.ReplaceAllString(text, "")
	text = nonWordSeparators.ReplaceAllString(text, " ")

	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// urlToTokens extracts host and path segment tokens from a URL, dropping
// scheme, query string, and fragment — two links that differ only in query
// parameters should still be considered the same token sequence.
func urlToTokens(raw string) []string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return []string{strings.NewReplacer("://", "_", "/", "_").Replace(raw)}
	}

	var tokens []string
	if host := parsed.Hostname(); host != "" {
		tokens = append(tokens, strings.Split(host, ".")...)
	}
	if path := strings.Trim(parsed.Path, "/"); path != "" {
		for _, seg := range strings.Split(path, "/") {
			if seg != "" {
				tokens = append(tokens, seg)
			}
		}
	}
	if len(tokens) == 0 {
		return []string{strings.NewReplacer("://", "_", "/", "_").Replace(raw)}
	}
	return tokens
}
