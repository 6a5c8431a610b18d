package n2k

import "testing"

func TestIncrSrc_WrapsAtMaxSrc(t *testing.T) {
	// REDESIGN: wrap when src == MaxSrc, not after exceeding it.
	if got := incrSrc(MaxSrc); got != MinSrc {
		t.Fatalf("incrSrc(MaxSrc) = %d, want %d", got, MinSrc)
	}
}

func TestIncrSrc_Increments(t *testing.T) {
	if got := incrSrc(5); got != 6 {
		t.Fatalf("incrSrc(5) = %d, want 6", got)
	}
}

func TestIncrSrc_NeverReachesOutOfRangeValue(t *testing.T) {
	src := MinSrc
	for i := 0; i < 1000; i++ {
		src = incrSrc(src)
		if src < MinSrc || src > MaxSrc {
			t.Fatalf("incrSrc produced out-of-range src %d", src)
		}
	}
}

func TestAddressClaimState_StartedAndRestart(t *testing.T) {
	var s addressClaimState
	if s.isStarted() {
		t.Fatal("zero-value state should not be started")
	}
	s.restart()
	if !s.isStarted() {
		t.Fatal("expected started after restart")
	}
	if s.timerC == nil {
		t.Fatal("expected a live timer channel after restart")
	}
}
