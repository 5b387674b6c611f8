package integration

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrEndpointNotAllowed means an https_post endpoint is outside the hosts the
// server may deliver to.
var ErrEndpointNotAllowed = errors.New("endpoint not allowed")

// HostPolicy lists the hosts https_post nodes may deliver to. An entry is an
// exact host name, a "*.example.com" suffix match, or "*" for any host. The
// zero value allows nothing.
type HostPolicy struct {
	hosts []string
}

func NewHostPolicy(hosts []string) HostPolicy {
	normalized := make([]string, 0, len(hosts))

	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			normalized = append(normalized, h)
		}
	}

	return HostPolicy{hosts: normalized}
}

// Check returns ErrEndpointNotAllowed unless endpoint is an http(s) URL whose
// host matches the policy.
func (p HostPolicy) Check(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Hostname() == "" {
		return fmt.Errorf("%w: %q is not an http(s) URL", ErrEndpointNotAllowed, endpoint)
	}

	host := strings.ToLower(u.Hostname())

	for _, allowed := range p.hosts {
		switch {
		case allowed == "*", allowed == host:
			return nil
		case strings.HasPrefix(allowed, "*.") && strings.HasSuffix(host, allowed[1:]):
			return nil
		}
	}

	return fmt.Errorf("%w: host %s is not in the delivery allowlist", ErrEndpointNotAllowed, host)
}
