package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	featureID  = regexp.MustCompile(`!1s(0x[0-9a-fA-F]+:0x[0-9a-fA-F]+)`)
	unsafeRune = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// PlaceID derives a filesystem-safe identifier for a listing URL. It
// prefers the feature id embedded in /maps/place/ URLs, then place_id and
// cid query parameters, then the place slug. Unrecognised URLs hash.
func PlaceID(rawURL string) string {
	if m := featureID.FindStringSubmatch(rawURL); m != nil {
		return sanitizeID(m[1])
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return hashID(rawURL)
	}

	q := u.Query()
	for _, key := range []string{"query_place_id", "place_id"} {
		if v := q.Get(key); v != "" {
			return sanitizeID(v)
		}
	}
	if v := q.Get("q"); strings.HasPrefix(v, "place_id:") {
		return sanitizeID(strings.TrimPrefix(v, "place_id:"))
	}
	if v := q.Get("cid"); v != "" {
		return "cid_" + sanitizeID(v)
	}

	if u.Scheme == "file" {
		base := path.Base(u.Path)
		return sanitizeID(strings.TrimSuffix(base, path.Ext(base)))
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "place" && i+1 < len(segments) && segments[i+1] != "" {
			name, err := url.PathUnescape(segments[i+1])
			if err != nil {
				name = segments[i+1]
			}
			if id := sanitizeID(name); id != "" {
				return id
			}
		}
	}

	return hashID(rawURL)
}

func sanitizeID(s string) string {
	return strings.Trim(unsafeRune.ReplaceAllString(s, "_"), "_")
}

func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return "url_" + hex.EncodeToString(sum[:8])
}
