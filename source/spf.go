package source

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/miekg/dns"
)

const fallbackNameserver = "8.8.8.8:53"

// SPFFetcher flattens the ip4: mechanisms of a domain's SPF record, following
// include: and redirect= targets. Every TXT lookup counts against maxLookups.
type SPFFetcher struct {
	name       string
	domain     string
	nameserver string
	maxLookups int
	client     *dns.Client
}

func NewSPFFetcher(name, domain, nameserver string, maxLookups int, timeout time.Duration) *SPFFetcher {
	if maxLookups <= 0 {
		maxLookups = 10
	}
	return &SPFFetcher{
		name:       name,
		domain:     domain,
		nameserver: nameserver,
		maxLookups: maxLookups,
		client:     &dns.Client{Timeout: timeout},
	}
}

func (f *SPFFetcher) Name() string { return f.name }

func (f *SPFFetcher) Fetch(ctx context.Context) ([]string, error) {
	server := f.nameserver
	if server == "" {
		server = systemNameserver()
	}

	w := &spfWalk{fetcher: f, server: server, visited: make(map[string]bool)}
	if err := w.walk(ctx, f.domain); err != nil {
		return nil, err
	}
	return w.tokens, nil
}

// systemNameserver returns the first resolver from /etc/resolv.conf.
func systemNameserver() string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return fallbackNameserver
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}

type spfWalk struct {
	fetcher *SPFFetcher
	server  string
	visited map[string]bool
	lookups int
	tokens  []string
}

func (w *spfWalk) walk(ctx context.Context, domain string) error {
	key := strings.ToLower(dns.Fqdn(domain))
	if w.visited[key] {
		log.Warn("SPF include cycle, skipping", "domain", domain)
		return nil
	}
	if w.lookups >= w.fetcher.maxLookups {
		return fmt.Errorf("SPF lookup limit of %d reached at %s", w.fetcher.maxLookups, domain)
	}
	w.visited[key] = true
	w.lookups++

	record, err := w.fetcher.lookupSPF(ctx, w.server, domain)
	if err != nil {
		return err
	}
	if record == "" {
		log.Warn("No SPF record found", "domain", domain)
		return nil
	}

	for _, term := range strings.Fields(record)[1:] {
		qualifier := byte('+')
		switch term[0] {
		case '+', '-', '~', '?':
			qualifier, term = term[0], term[1:]
		}
		lower := strings.ToLower(term)

		switch {
		case strings.HasPrefix(lower, "ip4:"):
			if qualifier != '+' {
				continue
			}
			w.tokens = append(w.tokens, term[len("ip4:"):])
		case strings.HasPrefix(lower, "include:"):
			if qualifier != '+' {
				continue
			}
			if err := w.walk(ctx, term[len("include:"):]); err != nil {
				return err
			}
		case strings.HasPrefix(lower, "redirect="):
			if err := w.walk(ctx, term[len("redirect="):]); err != nil {
				return err
			}
		case strings.HasPrefix(lower, "ip6:"):
		default:
			log.Debug("Ignoring SPF term", "domain", domain, "term", term)
		}
	}
	return nil
}

// lookupSPF returns the v=spf1 TXT record of domain, or "" when there is none.
func (f *SPFFetcher) lookupSPF(ctx context.Context, server, domain string) (string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeTXT)
	m.RecursionDesired = true

	resp, _, err := f.client.ExchangeContext(ctx, m, server)
	if err != nil {
		return "", fmt.Errorf("DNS query error for %s: %w", domain, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("DNS response failed for %s: %s", domain, dns.RcodeToString[resp.Rcode])
	}

	for _, ans := range resp.Answer {
		t, ok := ans.(*dns.TXT)
		if !ok {
			continue
		}
		record := strings.Join(t.Txt, "")
		lower := strings.ToLower(record)
		if lower == "v=spf1" || strings.HasPrefix(lower, "v=spf1 ") {
			return record, nil
		}
	}
	return "", nil
}
