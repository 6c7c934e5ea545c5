package util

import (
	"net/url"
	"strings"
)

const chatCompletionsPath = "/chat/completions"

// BuildChatCompletionsURL joins a provider base URL with the chat completions
// path. Base URLs in provider tables are written both ways in the wild
// ("https://openrouter.ai/api/v1" and ".../api/v1/chat/completions"), so the
// suffix is only appended when missing.
func BuildChatCompletionsURL(baseURL string) string {
	trimmed := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(trimmed, chatCompletionsPath) {
		return trimmed
	}
	return trimmed + chatCompletionsPath
}

// OriginOf reduces a URL to its origin (scheme://host[:port]), the key used
// for connection pools. Pools must never be shared across origins.
func OriginOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rawURL
	}
	return parsed.Scheme + "://" + parsed.Host
}

// HostOf returns the hostname portion of a URL, or the raw string when it
// does not parse
func HostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Hostname()
}
