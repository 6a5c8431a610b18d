// Package metrics exposes EventLoop activity as Prometheus metrics.
// Grounded on the counter/gauge/HTTP-endpoint conventions of the metrics
// package this was adapted from.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j1939dev/n2k-core/internal/logging"
)

var (
	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2k_frames_sent_total",
		Help: "Total CAN frames handed to the transport.",
	})
	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2k_frames_received_total",
		Help: "Total extended-ID frames received from the transport, including absorbed address claims.",
	})
	FramesDiscardedStandardID = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2k_frames_discarded_standard_id_total",
		Help: "Total inbound frames dropped for carrying a standard (non-extended) CAN ID.",
	})
	AddressClaimsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2k_address_claims_started_total",
		Help: "Total times this loop began an address claim from idle.",
	})
	AddressClaimsRestarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2k_address_claims_restarted_total",
		Help: "Total times this loop ceded its address and re-claimed a new one.",
	})
	AddressClaimCollisionsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2k_address_claim_collisions_ignored_total",
		Help: "Total address-claim collisions against an identical DeviceName (protocol violation, logged and ignored).",
	})
	ClaimedSrc = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "n2k_claimed_src",
		Help: "Source address this loop currently holds or is attempting to claim.",
	})
)

// Recorder implements n2k.Recorder against the package-level collectors
// above.
type Recorder struct{}

func (Recorder) FrameSent()                    { FramesSent.Inc() }
func (Recorder) FrameReceived()                { FramesReceived.Inc() }
func (Recorder) FrameDiscardedStandardID()     { FramesDiscardedStandardID.Inc() }
func (Recorder) AddressClaimStarted()          { AddressClaimsStarted.Inc() }
func (Recorder) AddressClaimRestarted()        { AddressClaimsRestarted.Inc() }
func (Recorder) AddressClaimCollisionIgnored() { AddressClaimCollisionsIgnored.Inc() }

// SetClaimedSrc records the loop's currently claimed source address, for
// callers polling EventLoop.Src() outside the Recorder callbacks (which
// carry no src parameter).
func SetClaimedSrc(src uint8) { ClaimedSrc.Set(float64(src)) }

// StartHTTP serves Prometheus metrics at /metrics on addr and returns the
// server so the caller can shut it down.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}
