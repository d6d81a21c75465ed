package audio

import "fmt"

// Resampler converts a stream of float32 samples between rates, carrying
// interpolation state across chunk boundaries so back-to-back chunks produce
// the same output a single large conversion would.
type Resampler struct {
	fromRate int
	toRate   int

	// pos is the source-timeline index of the next output sample, relative
	// to the start of the current input chunk. It goes negative when the
	// next output sample falls between the last sample of the previous
	// chunk and the first sample of the current one.
	pos  float64
	last float32
}

func NewResampler(fromRate, toRate int) (*Resampler, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", fromRate, toRate)
	}
	return &Resampler{fromRate: fromRate, toRate: toRate}, nil
}

func (r *Resampler) Process(input []float32) []float32 {
	if len(input) == 0 {
		return nil
	}
	if r.fromRate == r.toRate {
		return input
	}

	step := float64(r.fromRate) / float64(r.toRate)
	output := make([]float32, 0, int(float64(len(input))/step)+2)

	pos := r.pos
	for {
		if pos < 0 {
			frac := float32(pos + 1)
			output = append(output, r.last*(1-frac)+input[0]*frac)
		} else {
			idx := int(pos)
			if idx >= len(input) {
				break
			}
			frac := float32(pos - float64(idx))
			if idx+1 < len(input) {
				output = append(output, input[idx]*(1-frac)+input[idx+1]*frac)
			} else if frac == 0 {
				output = append(output, input[idx])
			} else {
				// Falls between this chunk and the next one.
				break
			}
		}
		pos += step
	}

	r.last = input[len(input)-1]
	r.pos = pos - float64(len(input))
	return output
}

// Reset clears carried state, for reuse after a capture restart.
func (r *Resampler) Reset() {
	r.pos = 0
	r.last = 0
}
