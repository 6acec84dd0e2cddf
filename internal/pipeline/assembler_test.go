package pipeline

import "testing"

// ramp returns n samples of a monotonically increasing signal starting
// at the given value, so window contents are position-checkable
func ramp(start, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(start + i)
	}
	return samples
}

func TestAssemblerWindowLength(t *testing.T) {
	a := NewAssembler(100, 10)

	var windows []Window
	for i := 0; i < 10; i++ {
		windows = append(windows, a.Add(ramp(i*35, 35))...)
	}

	if len(windows) == 0 {
		t.Fatal("no windows emitted")
	}
	for _, w := range windows {
		if len(w.Samples) != 100 {
			t.Errorf("window %d length = %d, want 100", w.Seq, len(w.Samples))
		}
	}
}

func TestAssemblerOverlapCarried(t *testing.T) {
	a := NewAssembler(100, 10)

	var windows []Window
	windows = append(windows, a.Add(ramp(0, 250))...)

	if len(windows) < 2 {
		t.Fatalf("got %d windows, want at least 2", len(windows))
	}

	for i := 1; i < len(windows); i++ {
		prev := windows[i-1].Samples
		curr := windows[i].Samples
		tail := prev[len(prev)-10:]
		head := curr[:10]
		for j := range tail {
			if tail[j] != head[j] {
				t.Fatalf("window %d head[%d] = %v, want %v (previous tail)", i, j, head[j], tail[j])
			}
		}
	}
}

func TestAssemblerSequencing(t *testing.T) {
	a := NewAssembler(50, 5)

	windows := a.Add(ramp(0, 200))
	for i, w := range windows {
		if w.Seq != i {
			t.Errorf("window %d has seq %d", i, w.Seq)
		}
		if w.Flush {
			t.Errorf("window %d marked as flush", i)
		}
	}
}

func TestAssemblerFlush(t *testing.T) {
	a := NewAssembler(100, 10)
	a.Add(ramp(0, 140))

	// One full window emitted, 40 samples pending plus a 10 sample tail
	w, ok := a.Flush(0)
	if !ok {
		t.Fatal("Flush returned no window")
	}
	if !w.Flush {
		t.Error("flush window not marked")
	}
	if len(w.Samples) != 50 {
		t.Errorf("flush window length = %d, want 50 (tail + pending)", len(w.Samples))
	}

	// Tail prefix must match the end of the emitted window
	for i := 0; i < 10; i++ {
		if w.Samples[i] != float32(90+i) {
			t.Errorf("flush sample %d = %v, want %v", i, w.Samples[i], float32(90+i))
		}
	}
}

func TestAssemblerFlushBelowMinimumSkipped(t *testing.T) {
	a := NewAssembler(100, 10)
	a.Add(ramp(0, 105))

	// 5 pending samples, below the 20 sample minimum
	if _, ok := a.Flush(20); ok {
		t.Error("Flush emitted a window below the minimum length")
	}
}

func TestAssemblerFlushEmpty(t *testing.T) {
	a := NewAssembler(100, 10)
	a.Add(ramp(0, 100))

	if _, ok := a.Flush(0); ok {
		t.Error("Flush emitted a window with nothing pending")
	}
}

func TestAssemblerNoOverlap(t *testing.T) {
	a := NewAssembler(50, 0)

	windows := a.Add(ramp(0, 150))
	if len(windows) != 3 {
		t.Fatalf("got %d windows, want 3", len(windows))
	}

	// Without overlap the windows partition the input exactly
	for i, w := range windows {
		if w.Samples[0] != float32(i*50) {
			t.Errorf("window %d starts at %v, want %v", i, w.Samples[0], float32(i*50))
		}
	}
}

func TestAssemblerPending(t *testing.T) {
	a := NewAssembler(100, 10)
	a.Add(ramp(0, 30))

	if got := a.Pending(); got != 30 {
		t.Errorf("Pending() = %d, want 30", got)
	}
}
