package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/j1939dev/n2k-core/internal/config"
)

const mdnsServiceType = "_n2kbridge._tcp"

// startMDNS registers the bridge's metrics endpoint via mDNS and returns a
// shutdown function; a no-op if disabled.
func startMDNS(ctx context.Context, cfg config.MDNS, port int) (func(), error) {
	if !cfg.Enable {
		return func() {}, nil
	}

	instance := cfg.Name
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("n2kbridge-%s", host)
	}

	svc, err := zeroconf.Register(instance, mdnsServiceType, "local.", port, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	var once sync.Once
	shutdown := func() { once.Do(svc.Shutdown) }

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		shutdown()
	}()
	return func() { close(done); shutdown(); time.Sleep(50 * time.Millisecond) }, nil
}
