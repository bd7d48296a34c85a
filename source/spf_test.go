package source

import (
	"context"
	"net"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startDNS serves TXT records from records (keyed by FQDN) on a local UDP port.
// Names without an entry get NXDOMAIN.
func startDNS(t *testing.T, records map[string][]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		name := strings.ToLower(r.Question[0].Name)
		txts, ok := records[name]
		if !ok {
			m.Rcode = dns.RcodeNameError
		}
		for _, txt := range txts {
			m.Answer = append(m.Answer, &dns.TXT{
				Hdr: dns.RR_Header{Name: r.Question[0].Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
				Txt: []string{txt},
			})
		}
		w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() { srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestSPFFetcher_Flatten(t *testing.T) {
	addr := startDNS(t, map[string][]string{
		"example.com.": {
			"google-site-verification=abc",
			"v=spf1 ip4:192.0.2.0/24 include:_spf.example.net -ip4:198.51.100.1 ip6:2001:db8::/32 mx ~all",
		},
		"_spf.example.net.": {"v=spf1 +ip4:203.0.113.7 include:example.com redirect=_r.example.org"},
		"_r.example.org.":   {"v=spf1 ip4:10.1.0.0/16 -all"},
	})

	f := NewSPFFetcher("spf", "example.com", addr, 10, 2*time.Second)
	got, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Strings(got)
	want := []string{"10.1.0.0/16", "192.0.2.0/24", "203.0.113.7"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fetch() = %v, want %v", got, want)
	}
}

func TestSPFFetcher_LookupLimit(t *testing.T) {
	addr := startDNS(t, map[string][]string{
		"a.test.": {"v=spf1 include:b.test"},
		"b.test.": {"v=spf1 include:c.test"},
		"c.test.": {"v=spf1 ip4:1.1.1.1"},
	})

	f := NewSPFFetcher("spf", "a.test", addr, 2, 2*time.Second)
	_, err := f.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "lookup limit") {
		t.Fatalf("expected lookup limit error, got %v", err)
	}
}

func TestSPFFetcher_NoRecord(t *testing.T) {
	addr := startDNS(t, map[string][]string{
		"plain.test.": {"just some text"},
	})

	f := NewSPFFetcher("spf", "plain.test", addr, 10, 2*time.Second)
	got, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no tokens, got %v", got)
	}
}

func TestSPFFetcher_NXDomain(t *testing.T) {
	addr := startDNS(t, map[string][]string{})

	f := NewSPFFetcher("spf", "missing.test", addr, 10, 2*time.Second)
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for NXDOMAIN")
	}
}
