package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	lj "github.com/elastic/go-lumber/lj"
	srv2 "github.com/elastic/go-lumber/server/v2"

	"github.com/ChristianF88/cidrfold/config"
)

// LumberjackFetcher accepts events from a log shipper (Beats, Logstash) for a
// fixed window. The "message" field of every event is split on whitespace and
// each field becomes a token.
type LumberjackFetcher struct {
	name        string
	addr        string
	window      time.Duration
	readTimeout time.Duration
	listener    net.Listener
}

func NewLumberjackFetcher(name, addr string, window time.Duration) *LumberjackFetcher {
	if window <= 0 {
		window = config.DefaultWindow
	}
	return &LumberjackFetcher{
		name:        name,
		addr:        addr,
		window:      window,
		readTimeout: 30 * time.Second,
	}
}

// Listen binds the receiver address ahead of Fetch. Fetch listens on its own
// when Listen was not called.
func (f *LumberjackFetcher) Listen() (net.Addr, error) {
	if f.listener != nil {
		return f.listener.Addr(), nil
	}
	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", f.addr, err)
	}
	f.listener = ln
	return ln.Addr(), nil
}

func (f *LumberjackFetcher) Name() string { return f.name }

// Fetch receives events until the window elapses or ctx is done and returns
// whatever arrived. Batches are acknowledged once their tokens are taken.
func (f *LumberjackFetcher) Fetch(ctx context.Context) ([]string, error) {
	if _, err := f.Listen(); err != nil {
		return nil, err
	}
	ln := f.listener
	f.listener = nil

	srv, err := srv2.NewWithListener(ln, srv2.Timeout(f.readTimeout))
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to create lumberjack server: %w", err)
	}
	defer srv.Close()

	log.Info("Receiving events", "source", f.name, "addr", ln.Addr().String(), "window", f.window)

	timer := time.NewTimer(f.window)
	defer timer.Stop()

	var tokens []string
	batches := srv.ReceiveChan()
	for {
		select {
		case batch, ok := <-batches:
			if !ok {
				return tokens, nil
			}
			tokens = append(tokens, tokensFromBatch(batch)...)
			batch.ACK()
		case <-timer.C:
			return tokens, nil
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return tokens, nil
			}
			return tokens, ctx.Err()
		}
	}
}

func tokensFromBatch(batch *lj.Batch) []string {
	var tokens []string
	for _, evt := range batch.Events {
		m, ok := evt.(map[string]interface{})
		if !ok {
			continue
		}
		msg, ok := m["message"].(string)
		if !ok {
			continue
		}
		tokens = append(tokens, strings.Fields(msg)...)
	}
	return tokens
}
