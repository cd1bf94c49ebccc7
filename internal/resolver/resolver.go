// Package resolver discovers the host's current external address.
package resolver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/bradleysepos/aws-ddns/internal/metrics"
	"github.com/bradleysepos/aws-ddns/internal/provider"
)

var (
	// ErrNoAddressFound indicates every lookup service was tried and none
	// returned an acceptable address.
	ErrNoAddressFound = errors.New("no acceptable external address found")

	// ErrInvalidOverride indicates the operator-supplied address is malformed,
	// the wrong family, or inside a reserved range.
	ErrInvalidOverride = errors.New("invalid override address")
)

// Family selects which IP version lookups are bound to.
type Family string

const (
	IPv4 Family = "ipv4"
	IPv6 Family = "ipv6"
)

// FamilyFor maps a record type to the address family it carries.
func FamilyFor(t provider.RRType) Family {
	if t == provider.TypeAAAA {
		return IPv6
	}
	return IPv4
}

const lookupTimeout = 15 * time.Second

type Resolver struct {
	family     Family
	services   []string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// New builds a resolver for the given family. The services are plain-text
// external IP endpoints, tried in order. The HTTP transport dials only the
// family's network so the service observes the matching source address.
func New(family Family, services []string, m *metrics.Metrics) *Resolver {
	network := "tcp4"
	if family == IPv6 {
		network = "tcp6"
	}
	dialer := &net.Dialer{Timeout: lookupTimeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}
	return &Resolver{
		family:     family,
		services:   services,
		httpClient: &http.Client{Transport: transport},
		metrics:    m,
	}
}

// SetHTTPClient replaces the transport. Used by tests to bypass the
// family-bound dialer.
func (r *Resolver) SetHTTPClient(c *http.Client) {
	r.httpClient = c
}

// Resolve returns the current external address.
//
// A non-empty override is validated and returned without any network call.
// Otherwise services are tried in order and the first syntactically valid,
// non-reserved address of the right family wins. Individual service failures
// are swallowed; the services are best-effort and redundant by design.
func (r *Resolver) Resolve(ctx context.Context, override string) (netip.Addr, error) {
	if override != "" {
		addr, err := netip.ParseAddr(override)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("%w: %q: %v", ErrInvalidOverride, override, err)
		}
		if !r.matchesFamily(addr) {
			return netip.Addr{}, fmt.Errorf("%w: %q is not an %s address", ErrInvalidOverride, override, r.family)
		}
		if isReserved(addr) {
			return netip.Addr{}, fmt.Errorf("%w: %q is in a reserved range", ErrInvalidOverride, override)
		}
		return addr, nil
	}

	for _, service := range r.services {
		addr, err := r.lookup(ctx, service)
		if err != nil {
			slog.Debug("external IP lookup failed", "service", service, "error", err)
			r.metrics.IncLookupRequest(service, false)
			continue
		}
		r.metrics.IncLookupRequest(service, true)
		return addr, nil
	}
	return netip.Addr{}, fmt.Errorf("%w: tried %d services", ErrNoAddressFound, len(r.services))
}

func (r *Resolver) lookup(ctx context.Context, service string) (netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("http request returned %s", resp.Status)
	}

	// Only the first line of the body counts; some services append extras.
	line, _ := bufio.NewReader(resp.Body).ReadString('\n')
	addr, err := netip.ParseAddr(strings.TrimSpace(line))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse response body: %w", err)
	}
	if !r.matchesFamily(addr) {
		return netip.Addr{}, fmt.Errorf("address %s is not %s", addr, r.family)
	}
	if isReserved(addr) {
		return netip.Addr{}, fmt.Errorf("address %s is in a reserved range", addr)
	}
	return addr, nil
}

func (r *Resolver) matchesFamily(addr netip.Addr) bool {
	if r.family == IPv6 {
		return addr.Is6() && !addr.Is4In6()
	}
	return addr.Is4()
}
