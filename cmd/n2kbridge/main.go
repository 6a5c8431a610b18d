// Command n2kbridge drives an N2K EventLoop against a real CAN transport,
// exposing Prometheus metrics and (optionally) advertising itself via mDNS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"syscall"

	"os/signal"

	"github.com/spf13/pflag"

	n2k "github.com/j1939dev/n2k-core"
	"github.com/j1939dev/n2k-core/discovery"
	"github.com/j1939dev/n2k-core/internal/config"
	"github.com/j1939dev/n2k-core/internal/logging"
	"github.com/j1939dev/n2k-core/metrics"
	"github.com/j1939dev/n2k-core/transport/actisense"
	"github.com/j1939dev/n2k-core/transport/socketcan"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to YAML config file")
	transportName := pflag.String("transport", "", "CAN transport: socketcan or actisense")
	ifName := pflag.String("interface", "", "SocketCAN interface name, e.g. can0")
	device := pflag.String("device", "", "Actisense NGT-1 serial device path")
	baud := pflag.Int("baud", 0, "Actisense serial baud rate")
	deviceName := pflag.String("name", "", "64-bit DeviceName, decimal or 0x-prefixed hex")
	initialSrc := pflag.Uint8("src", 0, "initial source address to claim, [1,254]")
	metricsAddr := pflag.String("metrics-addr", "", "address to serve Prometheus metrics on")
	mdnsEnable := pflag.Bool("mdns", false, "advertise the metrics endpoint via mDNS")
	logFormat := pflag.String("log-format", "text", "log output format: text or json")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyFlagOverrides(&cfg, transportName, ifName, device, baud, deviceName, initialSrc, metricsAddr, mdnsEnable)

	logging.Set(logging.New(*logFormat, slog.LevelInfo, nil))
	log := logging.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	transport, closeTransport, err := openTransport(cfg)
	if err != nil {
		log.Error("open_transport_failed", "error", err)
		os.Exit(1)
	}
	defer closeTransport()

	srv := metrics.StartHTTP(cfg.MetricsAddr)
	defer srv.Close()

	stopMDNS, err := startMDNS(ctx, cfg.MDNS, metricsPort(cfg.MetricsAddr))
	if err != nil {
		log.Error("mdns_failed", "error", err)
	} else {
		defer stopMDNS()
	}

	loop, _ := n2k.NewEventLoop(n2k.DeviceName(cfg.DeviceName), cfg.InitialSrc, transport, 16, metrics.Recorder{})

	tracker := discovery.NewTracker()
	loop.SetClaimObserver(func(src uint8, name n2k.DeviceName) {
		tracker.Observe(src, name)
	})

	log.Info("bridge_starting", "transport", cfg.Transport, "initial_src", cfg.InitialSrc)

	err = loop.Run(ctx, func(f n2k.Frame) error {
		metrics.SetClaimedSrc(loop.Src())
		log.Debug("frame_received", "pgn", f.ID.PGN(), "src", f.ID.Source())
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Error("event_loop_failed", "error", err)
		os.Exit(1)
	}
}

func openTransport(cfg config.Config) (n2k.Transport, func(), error) {
	switch cfg.Transport {
	case "socketcan":
		if err := socketcan.BringUp(cfg.Interface); err != nil {
			return nil, nil, err
		}
		t, err := socketcan.Open(cfg.Interface)
		if err != nil {
			return nil, nil, err
		}
		return t, func() { _ = t.Close() }, nil

	case "actisense":
		t, err := actisense.Open(cfg.Device, cfg.Baud)
		if err != nil {
			return nil, nil, err
		}
		return t, func() { _ = t.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func applyFlagOverrides(cfg *config.Config, transportName, ifName, device *string, baud *int, deviceName *string, initialSrc *uint8, metricsAddr *string, mdnsEnable *bool) {
	if pflag.Lookup("transport").Changed {
		cfg.Transport = *transportName
	}
	if pflag.Lookup("interface").Changed {
		cfg.Interface = *ifName
	}
	if pflag.Lookup("device").Changed {
		cfg.Device = *device
	}
	if pflag.Lookup("baud").Changed {
		cfg.Baud = *baud
	}
	if pflag.Lookup("name").Changed {
		n, err := strconv.ParseUint(*deviceName, 0, 64)
		if err == nil {
			cfg.DeviceName = n
		}
	}
	if pflag.Lookup("src").Changed {
		cfg.InitialSrc = *initialSrc
	}
	if pflag.Lookup("metrics-addr").Changed {
		cfg.MetricsAddr = *metricsAddr
	}
	if pflag.Lookup("mdns").Changed {
		cfg.MDNS.Enable = *mdnsEnable
	}
}

// metricsPort extracts the numeric port from an address like ":9400" for
// mDNS advertisement, returning 0 when no port can be parsed.
func metricsPort(addr string) int {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			p, err := strconv.Atoi(addr[i+1:])
			if err != nil {
				return 0
			}
			return p
		}
	}
	return 0
}
