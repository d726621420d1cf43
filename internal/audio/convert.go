package audio

import (
	"encoding/binary"
	"math"
)

// DownmixInt16 collapses interleaved multi-channel frames to mono by
// averaging. A mono or empty input is returned unchanged.
func DownmixInt16(samples []int16, channels int) []int16 {
	if channels <= 1 || len(samples) == 0 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += int(samples[i*channels+ch])
		}
		mono[i] = int16(sum / channels)
	}
	return mono
}

// ResampleInt16 converts between sample rates with linear interpolation.
// Quality is adequate for speech; the decoder sees 16kHz mono regardless
// of what the device produced.
func ResampleInt16(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(toRate) / float64(fromRate)
	outputLen := int(math.Ceil(float64(len(samples)) * ratio))
	output := make([]int16, outputLen)

	for i := 0; i < outputLen; i++ {
		srcPos := float64(i) / ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx+1 < len(samples) {
			v := float64(samples[srcIdx])*(1-frac) + float64(samples[srcIdx+1])*frac
			output[i] = int16(v)
		} else if srcIdx < len(samples) {
			output[i] = samples[srcIdx]
		}
	}
	return output
}

// PCMBytesToInt16 reinterprets little-endian s16le bytes as samples. A
// trailing odd byte is ignored.
func PCMBytesToInt16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

// Int16ToPCMBytes is the inverse of PCMBytesToInt16.
func Int16ToPCMBytes(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

// RMS is the root-mean-square amplitude of a block, in raw sample units.
// Digital silence is 0; full-scale speech sits in the thousands.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
