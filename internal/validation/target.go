// Package validation classifies scan targets before they reach a tool.
// Tools receive targets as argv entries, never through a shell, so the
// point here is catching garbage early and normalizing the forms the
// wrappers expect.
package validation

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// TargetKind is the shape a target was recognized as.
type TargetKind string

const (
	KindIP   TargetKind = "ip"
	KindCIDR TargetKind = "cidr"
	KindHost TargetKind = "host"
	KindURL  TargetKind = "url"
	KindMAC  TargetKind = "mac"
)

// Target is a validated scan target. Normalized is the canonical form
// to hand to tools, e.g. the network address for a CIDR range.
type Target struct {
	Raw        string     `json:"raw"`
	Kind       TargetKind `json:"kind"`
	Normalized string     `json:"normalized"`
	Warnings   []string   `json:"warnings,omitempty"`
}

const maxTargetLen = 2048

// Hostname labels per RFC 1123. Single-label names stay valid because
// lab hosts rarely carry a domain.
var hostLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidateTarget checks one target and reports what it is. Private
// addresses pass silently; public ones get an authorization warning,
// since the expected theater is the operator's own network.
func ValidateTarget(raw string) (*Target, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return nil, fmt.Errorf("target is empty")
	}
	if len(target) > maxTargetLen {
		return nil, fmt.Errorf("target exceeds %d characters", maxTargetLen)
	}
	if strings.ContainsAny(target, " \t\n\r") {
		return nil, fmt.Errorf("target contains whitespace")
	}
	for _, r := range target {
		if r < 0x20 || r == 0x7f {
			return nil, fmt.Errorf("target contains control characters")
		}
	}

	t := &Target{Raw: raw}

	switch {
	case isMAC(target):
		hw, _ := net.ParseMAC(target)
		t.Kind = KindMAC
		t.Normalized = hw.String()

	case strings.Contains(target, "://"):
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
		}
		if u.Hostname() == "" {
			return nil, fmt.Errorf("url has no host")
		}
		t.Kind = KindURL
		t.Normalized = u.String()
		if ip := net.ParseIP(u.Hostname()); ip != nil && !isPrivateIP(ip) {
			t.Warnings = append(t.Warnings, publicWarning)
		}

	case strings.Contains(target, "/"):
		_, ipnet, err := net.ParseCIDR(target)
		if err != nil {
			return nil, fmt.Errorf("invalid cidr range: %w", err)
		}
		t.Kind = KindCIDR
		t.Normalized = ipnet.String()
		if !isPrivateIP(ipnet.IP) {
			t.Warnings = append(t.Warnings, publicWarning)
		}

	case net.ParseIP(target) != nil:
		ip := net.ParseIP(target)
		t.Kind = KindIP
		t.Normalized = ip.String()
		if !isPrivateIP(ip) {
			t.Warnings = append(t.Warnings, publicWarning)
		}

	default:
		host := strings.ToLower(strings.TrimSuffix(target, "."))
		if !isHostname(host) {
			return nil, fmt.Errorf("unrecognized target %q, want an ip, cidr, hostname, url or mac", raw)
		}
		t.Kind = KindHost
		t.Normalized = host
		if !isLocalName(host) {
			t.Warnings = append(t.Warnings, publicWarning)
		}
	}

	return t, nil
}

const publicWarning = "target is outside private address space, confirm you are authorized to scan it"

func isMAC(s string) bool {
	// Accept only the colon and dash 6-octet forms; anything longer is
	// an EUI-64 no wireless tool here takes.
	if len(s) != 17 {
		return false
	}
	hw, err := net.ParseMAC(s)
	return err == nil && len(hw) == 6
}

func isHostname(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if !hostLabel.MatchString(label) {
			return false
		}
	}
	return true
}

// isLocalName reports whether a hostname is clearly on the local
// network: single-label names and the mDNS and home-router suffixes.
func isLocalName(host string) bool {
	if !strings.Contains(host, ".") {
		return true
	}
	for _, suffix := range []string{".local", ".lan", ".home", ".internal", ".localdomain"} {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return host == "localhost"
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
