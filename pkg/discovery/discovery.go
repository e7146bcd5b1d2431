package discovery

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/logging"

	"github.com/hashicorp/mdns"
)

// Entry is one service instance seen on the local link.
type Entry struct {
	Name   string
	Host   string
	Port   int
	AddrV4 net.IP
	AddrV6 net.IP
	Info   []string
}

// Browser lists the instances of one service type.
type Browser interface {
	Browse(ctx context.Context, serviceType string, domain string, timeout time.Duration) ([]Entry, error)
}

type queryFunc func(params *mdns.QueryParam) error

type mdnsBrowser struct {
	logger logging.Logger
	query  queryFunc
}

func NewMDNSBrowser(logger logging.Logger) Browser {
	return &mdnsBrowser{
		logger: logger,
		query:  mdns.Query,
	}
}

// Browse blocks for the timeout, or less if ctx has an earlier deadline.
func (b *mdnsBrowser) Browse(ctx context.Context, serviceType string, domain string, timeout time.Duration) ([]Entry, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, errors.NewNetworkError("browse deadline already passed", ctx.Err())
	}

	entriesCh := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []Entry)
	go func() {
		var entries []Entry
		for e := range entriesCh {
			entries = append(entries, Entry{
				Name:   e.Name,
				Host:   e.Host,
				Port:   e.Port,
				AddrV4: e.AddrV4,
				AddrV6: e.AddrV6,
				Info:   e.InfoFields,
			})
		}
		done <- entries
	}()

	params := mdns.DefaultParams(serviceType)
	params.Domain = domain
	params.Timeout = timeout
	params.Entries = entriesCh

	b.logger.Debugf("Browsing mDNS, service: %s, domain: %s, timeout: %v", serviceType, domain, timeout)

	err := b.query(params)
	close(entriesCh)
	entries := <-done

	if err != nil {
		return entries, errors.NewNetworkError("mDNS query failed", err).WithContext("service", serviceType)
	}

	b.logger.Debugf("mDNS browse done, service: %s, entries: %d", serviceType, len(entries))
	return entries, nil
}

// BrowseOptions selects what HostAdvertised looks for.
type BrowseOptions struct {
	ServiceTypes []string
	Domain       string
	Timeout      time.Duration
}

// HostAdvertised browses each service type in turn and returns the entries
// belonging to hostname. It stops at the first type that yields a match.
func HostAdvertised(ctx context.Context, browser Browser, hostname string, options BrowseOptions) ([]Entry, error) {
	if hostname == "" {
		return nil, errors.NewValidationError("hostname cannot be empty", nil)
	}

	var lastErr error
	for _, serviceType := range options.ServiceTypes {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewNetworkError("browse cancelled", err)
		}

		entries, err := browser.Browse(ctx, serviceType, options.Domain, options.Timeout)
		if err != nil {
			lastErr = err
			continue
		}

		var matched []Entry
		for _, entry := range entries {
			if MatchesHost(entry, hostname) {
				matched = append(matched, entry)
			}
		}
		if len(matched) > 0 {
			return matched, nil
		}
	}

	return nil, lastErr
}

// MatchesHost compares the entry's target host, or failing that its instance
// label, against hostname. Case, trailing dots and the .local suffix are ignored.
func MatchesHost(entry Entry, hostname string) bool {
	want := normalizeHost(hostname)
	if want == "" {
		return false
	}

	if entry.Host != "" && normalizeHost(entry.Host) == want {
		return true
	}

	instance := entry.Name
	if i := strings.Index(instance, "._"); i >= 0 {
		instance = instance[:i]
	}
	return strings.EqualFold(strings.ReplaceAll(instance, "\\", ""), want)
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	host = strings.TrimSuffix(host, ".local")
	return host
}
