package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is used when the destination URL carries no port.
const DefaultPort = "80"

// Endpoint is a parsed destination URL of the form http://host[:port]/path.
type Endpoint struct {
	Scheme string
	Host   string
	Port   string
	// Path includes any query string, it is sent verbatim as the request URI.
	Path string
}

// ParseEndpoint parses a destination URL.
// A URL without "://" is read as http. Any scheme other than http fails with
// ErrUnsupportedScheme.
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, ErrMissingDestination
	}

	ep := Endpoint{Scheme: "http", Port: DefaultPort, Path: "/"}
	rest := raw
	if i := strings.Index(raw, "://"); i >= 0 {
		scheme := strings.ToLower(raw[:i])
		if scheme != "http" {
			return Endpoint{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, raw)
		}
		rest = raw[i+3:]
	}

	hostport := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		hostport = rest[:i]
		ep.Path = rest[i:]
	}

	host, port, err := splitHostPort(hostport)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, raw, err)
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: %s: missing host", ErrInvalidConfig, raw)
	}
	ep.Host = host
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return Endpoint{}, fmt.Errorf("%w: %s: bad port %q", ErrInvalidConfig, raw, port)
		}
		ep.Port = port
	}
	return ep, nil
}

func splitHostPort(hostport string) (string, string, error) {
	if strings.HasPrefix(hostport, "[") || strings.Count(hostport, ":") == 1 {
		if !strings.Contains(hostport, "]:") && strings.HasPrefix(hostport, "[") {
			return strings.Trim(hostport, "[]"), "", nil
		}
		return net.SplitHostPort(hostport)
	}
	return hostport, "", nil
}

// HostPort returns the host and port joined for dialing and the Host header.
func (e Endpoint) HostPort() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// String returns the endpoint in URL form.
func (e Endpoint) String() string {
	return e.Scheme + "://" + e.HostPort() + e.Path
}
