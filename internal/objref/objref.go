// Package objref converts between object keys, public object URLs and the
// file naming convention used for COA certificates and CMS uploads.
package objref

import (
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBucket holds certificates and CMS uploads.
	DefaultBucket = "coa-files"
	// PublicPath is the URL path prefix under which public objects are served.
	PublicPath = "/storage/v1/object/public/"

	coaPrefix   = "coas/"
	mediaPrefix = "cms/"
)

// Resolver builds and parses public object URLs for one bucket.
type Resolver struct {
	BaseURL string
	Bucket  string
}

func NewResolver(baseURL, bucket string) Resolver {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return Resolver{BaseURL: strings.TrimRight(baseURL, "/"), Bucket: bucket}
}

// PublicURL returns the retrieval URL for key.
func (r Resolver) PublicURL(key string) string {
	return r.BaseURL + PublicPath + r.Bucket + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL extracts the object key from a public URL. Repeated bucket or
// folder segments left behind by old uploads are collapsed. A value that is
// not a URL is treated as a bare key.
func (r Resolver) KeyFromURL(raw string) (string, bool) {
	key, ok := r.RawKeyFromURL(raw)
	if !ok {
		return "", false
	}
	key = r.collapse(key)
	if key == "" {
		return "", false
	}
	return key, true
}

// RawKeyFromURL extracts the object key from a public URL as written,
// keeping any repeated bucket or folder segments.
func (r Resolver) RawKeyFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	p := raw
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		p = u.Path
	}

	marker := PublicPath + r.Bucket + "/"
	if idx := strings.Index(p, marker); idx >= 0 {
		p = p[idx+len(marker):]
	} else if strings.Contains(raw, "://") {
		return "", false
	}

	key := strings.TrimLeft(p, "/")
	if key == "" {
		return "", false
	}
	return key, true
}

// IsDoubleNested reports whether raw repeats the bucket or folder segment,
// e.g. .../coa-files/coa-files/x.pdf or coas/coas/x.pdf.
func (r Resolver) IsDoubleNested(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		p = u.Path
	}
	marker := PublicPath + r.Bucket + "/"
	if idx := strings.Index(p, marker); idx >= 0 {
		p = p[idx+len(marker):]
	}
	p = strings.TrimLeft(p, "/")
	return r.collapse(p) != p
}

// Normalize rewrites raw into the canonical public URL. changed is false
// when raw already is canonical.
func (r Resolver) Normalize(raw string) (canonical string, changed bool) {
	key, ok := r.KeyFromURL(raw)
	if !ok {
		return raw, false
	}
	canonical = r.PublicURL(key)
	return canonical, canonical != raw
}

// collapse drops leading duplicated bucket/folder segments.
func (r Resolver) collapse(key string) string {
	segments := strings.Split(key, "/")
	for len(segments) > 1 && segments[0] == r.Bucket {
		segments = segments[1:]
	}
	out := segments[:0:0]
	for i, s := range segments {
		if i > 0 && s == segments[i-1] && (s+"/" == coaPrefix || s+"/" == mediaPrefix) {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, "/")
}

// Sanitize keeps letters, digits, dot, dash and underscore; everything else becomes a dash.
func Sanitize(s string) string {
	var b strings.Builder
	for _, c := range strings.TrimSpace(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// FileName names the stored certificate for code: <code>_<unix millis><ext>.
func FileName(code, original string, now time.Time) string {
	ext := strings.ToLower(path.Ext(original))
	if ext == "" {
		ext = ".pdf"
	}
	return Sanitize(code) + "_" + strconv.FormatInt(now.UnixMilli(), 10) + ext
}

// COAKey is the object key of a certificate uploaded for code.
func COAKey(code, original string, now time.Time) string {
	return coaPrefix + FileName(code, original, now)
}

// MediaKey is the object key of a CMS upload.
func MediaKey(original string, now time.Time) string {
	return mediaPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + Sanitize(path.Base(original))
}

// IsCOAKey reports whether key lives in the certificate folder.
func IsCOAKey(key string) bool {
	return strings.HasPrefix(key, coaPrefix)
}

// CodeFromKey recovers the code part of a certificate key, or "" when the
// key does not follow the naming convention.
func CodeFromKey(key string) string {
	base := path.Base(key)
	base = strings.TrimSuffix(base, path.Ext(base))
	idx := strings.LastIndex(base, "_")
	if idx <= 0 {
		return ""
	}
	if _, err := strconv.ParseInt(base[idx+1:], 10, 64); err != nil {
		return ""
	}
	return base[:idx]
}

// MatchesCode reports whether the key names a certificate of code.
func MatchesCode(key, code string) bool {
	if code == "" {
		return false
	}
	if c := CodeFromKey(key); c != "" {
		return c == Sanitize(code)
	}
	return strings.Contains(path.Base(key), Sanitize(code))
}
