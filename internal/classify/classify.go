// Package classify recognizes social-media URLs and normalizes them to a
// canonical form. All functions are pure; a non-match is a normal negative
// result, never an error.
package classify

import (
	"net/url"
	"regexp"
	"strings"

	"whatswizard/internal/core/domain"
)

// Match is a recognized platform URL in canonical form.
type Match struct {
	Platform domain.Platform
	URL      string
}

var (
	// Anchored whole-URL shapes. Substring hits inside larger text must not
	// classify, so every pattern runs against the full candidate URL.
	facebookRe = regexp.MustCompile(`^https?://(?:www\.|web\.|m\.)?facebook\.com/(?:watch/?\?v=[0-9]+|reel/[0-9]+|[A-Za-z0-9.\-_]+/(?:videos|posts)/[0-9]+|share/[vr]/[A-Za-z0-9]+/?)(?:[?#&].*)?$|^https://(?:www\.)?fb\.watch/[A-Za-z0-9]+/?$`)
	instagramRe = regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/(?:p|reel|reels|tv|stories|share)/[^/?#&]+(?:[/?#].*)?$`)
	tiktokRe    = regexp.MustCompile(`(?i)^https?://(?:www\.|m\.|vm\.|vt\.)?tiktok\.com/(?:@[^/]+/(?:video|photo)/[0-9]+|v/[0-9]+|t/\w+|[\w-]+)/?(?:[?#].*)?$`)

	firstURLRe = regexp.MustCompile(`https?://[^\s]+`)
	bareHostRe = regexp.MustCompile(`^(https?://)([^./]+\.[^./]+)(/.*)?$`)
)

const thumbnailProxyPrefix = "https://snapinsta.app/photo.php?photo="

// Classify reports whether url belongs to a supported platform, returning
// the match with the URL in canonical form. The boolean is false when no
// platform shape matches.
func Classify(rawURL string) (Match, bool) {
	u := Normalize(rawURL)
	switch {
	case facebookRe.MatchString(u):
		return Match{Platform: domain.PlatformFacebook, URL: u}, true
	case instagramRe.MatchString(u):
		return Match{Platform: domain.PlatformInstagram, URL: u}, true
	case tiktokRe.MatchString(u):
		return Match{Platform: domain.PlatformTikTok, URL: u}, true
	}
	return Match{}, false
}

// Normalize canonicalizes bare two-label hosts to include the www.
// subdomain, preserving scheme, host and path. URLs that already carry a
// subdomain pass through unchanged.
func Normalize(rawURL string) string {
	rest, ok := strings.CutPrefix(rawURL, "http://")
	scheme := "http://"
	if !ok {
		rest, ok = strings.CutPrefix(rawURL, "https://")
		scheme = "https://"
	}
	if !ok || strings.HasPrefix(rest, "www.") {
		return rawURL
	}
	m := bareHostRe.FindStringSubmatch(rawURL)
	if m == nil {
		return rawURL
	}
	return scheme + "www." + m[2] + m[3]
}

// FixThumbnail unwraps a thumbnail-proxy URL of the known fixed prefix,
// percent-decoding the remainder to recover the origin URL. Anything else
// passes through unchanged.
func FixThumbnail(rawURL string) string {
	if !strings.Contains(rawURL, thumbnailProxyPrefix) {
		return rawURL
	}
	decoded, err := url.PathUnescape(strings.Replace(rawURL, thumbnailProxyPrefix, "", 1))
	if err != nil {
		return rawURL
	}
	return decoded
}

// FirstURL extracts the first URL in a message body, or "" when the body
// carries none. Only the first URL of a message is ever considered.
func FirstURL(body string) string {
	return firstURLRe.FindString(body)
}
