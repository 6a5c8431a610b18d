package n2k

// Recorder receives EventLoop observability events. It is optional — passing
// nil to NewEventLoop installs a no-op Recorder — so the core package carries
// no hard dependency on any particular metrics backend. See SPEC_FULL.md §4.11; github.com/j1939dev/n2k-core/metrics
// implements this against Prometheus.
type Recorder interface {
	FrameSent()
	FrameReceived()
	FrameDiscardedStandardID()
	AddressClaimStarted()
	AddressClaimRestarted()
	AddressClaimCollisionIgnored()
}

// noopRecorder is used when the caller supplies no Recorder.
type noopRecorder struct{}

func (noopRecorder) FrameSent()                    {}
func (noopRecorder) FrameReceived()                {}
func (noopRecorder) FrameDiscardedStandardID()     {}
func (noopRecorder) AddressClaimStarted()          {}
func (noopRecorder) AddressClaimRestarted()        {}
func (noopRecorder) AddressClaimCollisionIgnored() {}
