package logic

import "testing"

// blackoutSamples is the number of Process calls that return 0 before the
// algorithm starts producing an index.
const blackoutSamples = 46

func feed(s *VocFilterState, raws []float64) []int32 {
	out := make([]int32, len(raws))
	for i, raw := range raws {
		out[i] = s.Process(raw)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestVocBlackoutReturnsZero(t *testing.T) {
	s := NewVocFilter()
	for i, idx := range feed(s, constant(blackoutSamples, 31000)) {
		if idx != 0 {
			t.Fatalf("sample %d: expected 0 during blackout, got %d", i, idx)
		}
	}
	if idx := s.Process(31000); idx == 0 {
		t.Error("expected a non-zero index after blackout")
	}
}

func TestVocSteadySignalSettlesNearOffset(t *testing.T) {
	s := NewVocFilter()
	var idx int32
	for i := 0; i < 2000; i++ {
		idx = s.Process(31000)
	}
	if idx < 90 || idx > 110 {
		t.Errorf("expected steady signal to settle near 100, got %d", idx)
	}
}

func TestVocIndexRange(t *testing.T) {
	s := NewVocFilter()
	raws := append(constant(600, 31000), constant(300, 26000)...)
	raws = append(raws, constant(300, 38000)...)
	for i, idx := range feed(s, raws) {
		if idx < 0 || idx > 500 {
			t.Fatalf("sample %d: index %d out of range", i, idx)
		}
	}
}

func TestVocDropInRawRaisesIndex(t *testing.T) {
	// Lower raw signal means more VOC on the MOX sensor.
	s := NewVocFilter()
	feed(s, constant(600, 31000))
	before := s.Process(31000)
	var after int32
	for i := 0; i < 60; i++ {
		after = s.Process(28000)
	}
	if after <= before {
		t.Errorf("expected index to rise after raw drop: before=%d after=%d", before, after)
	}
}

func TestVocDeterministic(t *testing.T) {
	raws := constant(blackoutSamples, 30500)
	for i := 0; i < 200; i++ {
		raws = append(raws, 30000+float64((i*37)%900))
	}

	a := feed(NewVocFilter(), raws)
	b := feed(NewVocFilter(), raws)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d: fresh filters disagree: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestVocOrderSensitive(t *testing.T) {
	warm := constant(blackoutSamples, 30000)
	var up, down []float64
	for i := 0; i < 40; i++ {
		up = append(up, 30000+float64(i)*100)
		down = append(down, 33900-float64(i)*100)
	}

	a := feed(NewVocFilter(), append(append([]float64{}, warm...), up...))
	b := feed(NewVocFilter(), append(append([]float64{}, warm...), down...))

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected different index sequences for reordered input")
	}
}

func TestVocOutOfRangeRawKeepsLastSignal(t *testing.T) {
	a := NewVocFilter()
	b := NewVocFilter()
	prefix := constant(200, 31000)
	feed(a, prefix)
	feed(b, prefix)

	// 0 and 65000 are rejected; the previous raw value is reused.
	got := a.Process(0)
	want := b.Process(31000)
	if got != want {
		t.Errorf("Process(0) = %d, want %d (same as repeating last raw)", got, want)
	}
	got = a.Process(65000)
	want = b.Process(31000)
	if got != want {
		t.Errorf("Process(65000) = %d, want %d", got, want)
	}
}

func TestVocClampsRaw(t *testing.T) {
	a := NewVocFilter()
	b := NewVocFilter()
	feed(a, constant(100, 31000))
	feed(b, constant(100, 31000))

	if got, want := a.Process(60000), b.Process(52767); got != want {
		t.Errorf("high clamp: got %d, want %d", got, want)
	}
	if got, want := a.Process(5000), b.Process(20001); got != want {
		t.Errorf("low clamp: got %d, want %d", got, want)
	}
}
