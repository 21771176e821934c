package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"unicode"
)

// boilerplate lists UI phrases that appear inside ad cards but carry no
// ad identity. They are stripped before signature construction so a
// re-render that gains or loses chrome text does not look like a new ad.
// Tuned against captured ad-library pages; keep lowercase.
var boilerplate = []string{
	"sponsored",
	"see ad details",
	"see summary details",
	"open dropdown",
	"this ad has multiple versions",
	"ad library report",
	"meta ad library",
	"active status",
	"started running on",
	"library id:",
}

// NormalizeText canonicalizes free text for dedup comparison: control
// characters become spaces, boilerplate phrases are removed, everything
// is lowercased and repeated whitespace collapses to a single space.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsControl(r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()

	for _, phrase := range boilerplate {
		out = strings.ReplaceAll(out, phrase, " ")
	}

	return strings.Join(strings.Fields(out), " ")
}

// NormalizeURL canonicalizes a URL for dedup comparison: lowercased
// scheme and host, no fragment, no trailing slash, query parameters
// sorted by key. Unparsable or non-http input is returned as-is; a
// stable wrong key still dedups consistently.
func NormalizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return raw
	}

	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	if parsed.RawQuery != "" {
		params := parsed.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf strings.Builder
		for i, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for j, v := range vals {
				if i > 0 || j > 0 {
					buf.WriteByte('&')
				}
				buf.WriteString(url.QueryEscape(k))
				buf.WriteByte('=')
				buf.WriteString(url.QueryEscape(v))
			}
		}
		parsed.RawQuery = buf.String()
	}

	return parsed.String()
}

// signature builds the composite dedup key: normalized headline, sorted
// normalized media URLs, normalized destination URL.
func signature(headline string, mediaURLs []string, destination string) string {
	media := make([]string, 0, len(mediaURLs))
	for _, u := range mediaURLs {
		media = append(media, NormalizeURL(u))
	}
	sort.Strings(media)

	h := sha256.New()
	h.Write([]byte(NormalizeText(headline)))
	h.Write([]byte{'\n'})
	h.Write([]byte(strings.Join(media, "\n")))
	h.Write([]byte{'\n'})
	h.Write([]byte(NormalizeURL(destination)))
	return hex.EncodeToString(h.Sum(nil))
}
