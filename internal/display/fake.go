package display

// FakePresenter records frames for test assertions.
type FakePresenter struct {
	// Frames contains every set of lines shown, oldest first.
	Frames [][]string
}

// NewFakePresenter creates a FakePresenter for testing.
func NewFakePresenter() *FakePresenter {
	return &FakePresenter{}
}

// Show records the lines.
func (f *FakePresenter) Show(lines ...string) {
	frame := make([]string, len(lines))
	copy(frame, lines)
	f.Frames = append(f.Frames, frame)
}

// Last returns the most recent frame, or nil if nothing was shown.
func (f *FakePresenter) Last() []string {
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}

// Reset clears recorded frames.
func (f *FakePresenter) Reset() {
	f.Frames = nil
}
