package utils

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrNotAbsolute = errors.New("url is not absolute")
	ErrMissingHost = errors.New("url has no host")
)

// hierarchical schemes must carry a host to be a usable URL.
var hierarchical = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

// ParseAbsoluteURL parses raw and rejects anything a browser URL parser would
// refuse without a base: relative references, and hierarchical schemes with an
// empty host. Opaque schemes such as about:blank or data: are accepted.
func ParseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return nil, ErrNotAbsolute
	}
	if _, ok := hierarchical[strings.ToLower(u.Scheme)]; ok && u.Hostname() == "" {
		return nil, ErrMissingHost
	}
	return u, nil
}

// Origin returns the serialized origin of u: scheme://host[:port], lower-cased,
// with the scheme's default port dropped. Opaque URLs have the origin "null".
func Origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := CanonicalHost(u.Hostname())
	if host == "" {
		return "null"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	port := u.Port()
	if def, ok := hierarchical[scheme]; ok && port == def {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host
}

// NormalizeOrigin parses raw and returns its serialized origin.
func NormalizeOrigin(raw string) (string, error) {
	u, err := ParseAbsoluteURL(raw)
	if err != nil {
		return "", err
	}
	return Origin(u), nil
}
