// Package archiveurl implements the dat:// URL grammar used to address
// archives: dat://<host>[+<version>][/path][?q][#f]. <host> is either a
// 64-character lowercase hex key or a DNS label resolved through a
// NameResolver.
package archiveurl

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// VersionLatest and VersionPreview are the two named (non-numeric) version
// selectors accepted after a `+` in the host component.
const (
	VersionLatest  = "latest"
	VersionPreview = "preview"
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// URL is a parsed dat:// reference.
type URL struct {
	Host     string // 64-hex key or DNS label, lowercased
	Version  string // "", "latest", "preview", or a decimal integer string
	Path     string
	Query    string
	Fragment string
}

// IsHexKey reports whether Host is already a canonical 64-character hex key,
// as opposed to a DNS label requiring resolution.
func (u *URL) IsHexKey() bool {
	return hexKeyPattern.MatchString(u.Host)
}

// EnsureValid checks the URL's invariants; call it as a gate before any
// operation touches a URL.
func (u *URL) EnsureValid() error {
	if u == nil {
		return errors.New("nil URL")
	}
	if u.Host == "" {
		return errors.New("URL with empty host")
	}
	if u.Version != "" && u.Version != VersionLatest && u.Version != VersionPreview {
		if _, err := strconv.ParseUint(u.Version, 10, 64); err != nil {
			return errors.Errorf("invalid version selector %q", u.Version)
		}
	}
	return nil
}

// Parse parses a dat:// URL. It fails with a wrapped error if raw does not
// have the dat:// scheme or the host component is malformed; callers in
// pkg/registry translate a parse failure into dherrors.ErrInvalidURL.
func Parse(raw string) (*URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "malformed URL")
	}
	if parsed.Scheme != "dat" {
		return nil, errors.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("missing host")
	}

	host := strings.ToLower(parsed.Host)
	version := ""
	if idx := strings.IndexByte(host, '+'); idx != -1 {
		version = host[idx+1:]
		host = host[:idx]
	}

	result := &URL{
		Host:     host,
		Version:  version,
		Path:     strings.TrimPrefix(parsed.Path, "/"),
		Query:    parsed.RawQuery,
		Fragment: parsed.Fragment,
	}
	if err := result.EnsureValid(); err != nil {
		return nil, err
	}
	return result, nil
}

// String renders the URL back to its canonical dat:// form.
func (u *URL) String() string {
	var b strings.Builder
	b.WriteString("dat://")
	b.WriteString(u.Host)
	if u.Version != "" {
		b.WriteByte('+')
		b.WriteString(u.Version)
	}
	if u.Path != "" {
		b.WriteByte('/')
		b.WriteString(u.Path)
	}
	if u.Query != "" {
		b.WriteByte('?')
		b.WriteString(u.Query)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String()
}
