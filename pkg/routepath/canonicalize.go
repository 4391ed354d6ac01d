package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Result is a cleaned path split from its query.
type Result struct {
	// Path is the cleaned path without query string.
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Changed reports whether cleaning modified the path.
	Changed bool
}

// String rejoins path and query.
func (r Result) String() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
)

// Clean normalizes a request or navigation path:
//   - drops the trailing slash (except for "/")
//   - collapses repeated slashes
//   - removes "." segments and resolves ".."
//
// Backslashes, NUL bytes (literal or %00), malformed percent-escapes and
// ".." above the root are rejected. A query string is carried through
// untouched.
func Clean(input string) (Result, error) {
	if input == "" {
		return Result{Path: "/", Changed: true}, nil
	}

	path, query, _ := strings.Cut(input, "?")

	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") && !validEscapes(path) {
		return Result{}, ErrInvalidPercentEscape
	}

	segments := make([]string, 0, strings.Count(path, "/")+1)
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return Result{}, ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	cleaned := "/" + strings.Join(segments, "/")
	return Result{
		Path:    cleaned,
		Query:   query,
		Changed: cleaned != path,
	}, nil
}

func validEscapes(path string) bool {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return false
		}
		i += 2
	}
	return true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// NavPath validates a navigation target and returns it cleaned.
// Only same-origin relative paths are accepted: the target must start with
// a single "/" and must not be an absolute or scheme-relative URL.
func NavPath(target string) (string, error) {
	if !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") ||
		strings.HasPrefix(target, "/\\") {
		return "", ErrInvalidPath
	}
	if u, err := url.Parse(target); err != nil || u.Scheme != "" || u.Host != "" {
		return "", ErrInvalidPath
	}

	r, err := Clean(target)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

// SafeRedirect returns target when it is a valid navigation path and
// fallback otherwise. It is used for the from parameter after sign-in.
func SafeRedirect(target, fallback string) string {
	if target == "" {
		return fallback
	}
	p, err := NavPath(target)
	if err != nil {
		return fallback
	}
	return p
}
