package audio

import (
	"math"
	"testing"
)

func TestNewResampler_InvalidRates(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
	}{
		{"zero source rate", 0, 16000},
		{"zero target rate", 48000, 0},
		{"negative rate", -1, 16000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewResampler(tt.from, tt.to); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestResampler_SameRatePassthrough(t *testing.T) {
	r, err := NewResampler(16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	input := []float32{0.1, 0.2, 0.3}
	output := r.Process(input)
	if len(output) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(output))
	}
}

func TestResampler_EmptyChunk(t *testing.T) {
	r, _ := NewResampler(48000, 16000)
	if out := r.Process(nil); len(out) != 0 {
		t.Errorf("expected no output, got %d samples", len(out))
	}
}

func TestResampler_DownsampleRate(t *testing.T) {
	r, _ := NewResampler(48000, 16000)
	input := make([]float32, 4800) // 100ms at 48k
	output := r.Process(input)
	if got := len(output); got < 1599 || got > 1601 {
		t.Errorf("100ms at 48k should produce ~1600 samples at 16k, got %d", got)
	}
}

// Chunked processing must agree with one-shot processing: the converter is
// streaming, so chunk boundaries cannot introduce discontinuities.
func TestResampler_ChunksMatchOneShot(t *testing.T) {
	const (
		fromRate = 44100
		toRate   = 16000
		total    = 4410
	)

	input := make([]float32, total)
	for i := range input {
		input[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / fromRate))
	}

	oneShot, _ := NewResampler(fromRate, toRate)
	want := oneShot.Process(input)

	chunked, _ := NewResampler(fromRate, toRate)
	var got []float32
	for _, size := range []int{441, 1000, 7, 2962} {
		got = append(got, chunked.Process(input[:size])...)
		input = input[size:]
	}

	if math.Abs(float64(len(want)-len(got))) > 1 {
		t.Fatalf("length mismatch: one-shot %d, chunked %d", len(want), len(got))
	}
	n := len(want)
	if len(got) < n {
		n = len(got)
	}
	for i := 0; i < n; i++ {
		if math.Abs(float64(want[i]-got[i])) > 1e-5 {
			t.Fatalf("sample %d diverged: one-shot %f, chunked %f", i, want[i], got[i])
		}
	}
}

func TestResampler_Reset(t *testing.T) {
	r, _ := NewResampler(48000, 16000)
	r.Process([]float32{0.5, 0.5, 0.5, 0.5})

	r.Reset()
	if r.pos != 0 || r.last != 0 {
		t.Error("Reset should clear carried state")
	}
}
