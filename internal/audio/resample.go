package audio

import "math"

// resampleStereo converts interleaved stereo PCM between sample rates with
// per-channel linear interpolation.
func resampleStereo(in []int16, inSR, outSR int) []int16 {
	if inSR == outSR || len(in) == 0 {
		return in
	}

	left, right := deinterleave(in)
	left = resampleLinear(left, inSR, outSR)
	right = resampleLinear(right, inSR, outSR)

	out := make([]int16, 0, len(left)*2)
	for i := range left {
		out = append(out, left[i], right[i])
	}
	return out
}

func deinterleave(in []int16) ([]int16, []int16) {
	n := len(in) / 2
	left := make([]int16, n)
	right := make([]int16, n)
	for i := 0; i < n; i++ {
		left[i] = in[2*i]
		right[i] = in[2*i+1]
	}
	return left, right
}

func resampleLinear(in []int16, inSR, outSR int) []int16 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]int16, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := src - float64(i0)
		out[i] = int16(float64(in[i0])*(1-a) + float64(in[i1])*a)
	}
	return out
}
