package audio

import "math"

// unityEpsilon is the ratio band treated as a no-op: at unity rate linear
// interpolation would only add rounding noise.
const unityEpsilon = 1e-6

// resampler converts mono float samples from a source rate to a target rate
// by linear interpolation. The fractional read position and the last input
// sample survive across calls, so feeding the same audio in arbitrary chunk
// sizes produces the same output stream as one large call.
type resampler struct {
	ratio float64 // target rate / source rate
	step  float64 // input samples consumed per output sample

	// pos is the fractional read position relative to the next chunk.
	// Negative values index into prev, the carried tail sample.
	pos     float64
	prev    float32
	hasPrev bool
}

func newResampler(sourceRate, targetRate int) *resampler {
	ratio := float64(targetRate) / float64(sourceRate)
	return &resampler{
		ratio: ratio,
		step:  1 / ratio,
	}
}

// Process resamples one chunk. The returned slice is freshly allocated; the
// input is not retained beyond its final sample.
func (r *resampler) Process(in []float32) []float32 {
	if len(in) == 0 {
		return nil
	}
	if math.Abs(r.ratio-1) < unityEpsilon {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}

	out := make([]float32, 0, int(float64(len(in))*r.ratio)+1)
	pos := r.pos
	// Stop one sample short of the tail: interpolating it needs the first
	// sample of the next chunk.
	for pos < float64(len(in)-1) {
		var s0, s1 float32
		if pos < 0 {
			s0, s1 = r.prev, in[0]
		} else {
			idx := int(pos)
			s0, s1 = in[idx], in[idx+1]
		}
		frac := float32(pos - math.Floor(pos))
		out = append(out, s0+(s1-s0)*frac)
		pos += r.step
	}

	r.pos = pos - float64(len(in))
	r.prev = in[len(in)-1]
	r.hasPrev = true
	return out
}

// Flush emits any output still owed against the carried tail sample. Call
// once when the session's input is exhausted.
func (r *resampler) Flush() []float32 {
	if !r.hasPrev || math.Abs(r.ratio-1) < unityEpsilon {
		return nil
	}
	var out []float32
	for pos := r.pos; pos < 0; pos += r.step {
		out = append(out, r.prev)
	}
	r.hasPrev = false
	return out
}
