package pipeline

// Window is one fixed-duration slice of audio submitted to the
// transcription engine as a unit
type Window struct {
	Samples []float32
	Seq     int
	Flush   bool
}

// Assembler accumulates audio blocks into fixed-length windows with a
// carried-over overlap tail. Every emitted window is exactly
// windowSize samples long except the final flush window; each
// non-initial window starts with the last overlapSize samples of the
// previous one.
type Assembler struct {
	windowSize  int
	overlapSize int

	pending []float32
	tail    []float32
	seq     int
}

// NewAssembler creates an assembler for the given window and overlap
// sizes in samples. Overlap must be smaller than the window.
func NewAssembler(windowSize, overlapSize int) *Assembler {
	return &Assembler{
		windowSize:  windowSize,
		overlapSize: overlapSize,
	}
}

// Add appends a block and returns any complete windows it produced
func (a *Assembler) Add(block []float32) []Window {
	a.pending = append(a.pending, block...)

	var windows []Window
	for {
		need := a.windowSize - len(a.tail)
		if len(a.pending) < need {
			break
		}

		window := make([]float32, 0, a.windowSize)
		window = append(window, a.tail...)
		window = append(window, a.pending[:need]...)
		a.pending = a.pending[need:]

		a.carryTail(window)

		windows = append(windows, Window{Samples: window, Seq: a.seq})
		a.seq++
	}
	return windows
}

// Flush returns the leftover pending samples as one final, possibly
// shorter, tail-prefixed window. Returns false when there is nothing
// pending or the leftover is below minSize samples.
func (a *Assembler) Flush(minSize int) (Window, bool) {
	if len(a.pending) == 0 || len(a.pending) < minSize {
		a.pending = nil
		return Window{}, false
	}

	window := make([]float32, 0, len(a.tail)+len(a.pending))
	window = append(window, a.tail...)
	window = append(window, a.pending...)
	a.pending = nil
	a.tail = nil

	w := Window{Samples: window, Seq: a.seq, Flush: true}
	a.seq++
	return w, true
}

// Pending returns the number of buffered samples not yet emitted
func (a *Assembler) Pending() int {
	return len(a.pending)
}

func (a *Assembler) carryTail(window []float32) {
	if a.overlapSize <= 0 || a.overlapSize >= len(window) {
		a.tail = nil
		return
	}
	a.tail = make([]float32, a.overlapSize)
	copy(a.tail, window[len(window)-a.overlapSize:])
}
