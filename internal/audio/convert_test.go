package audio

import (
	"math"
	"testing"
)

func TestDownmixInt16_Stereo(t *testing.T) {
	interleaved := []int16{100, 200, -100, 100, 0, 0}
	mono := DownmixInt16(interleaved, 2)
	if len(mono) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(mono))
	}
	if mono[0] != 150 {
		t.Errorf("frame 0: expected 150, got %d", mono[0])
	}
	if mono[1] != 0 {
		t.Errorf("frame 1: expected 0, got %d", mono[1])
	}
	if mono[2] != 0 {
		t.Errorf("frame 2: expected 0, got %d", mono[2])
	}
}

func TestDownmixInt16_MonoPassthrough(t *testing.T) {
	input := []int16{1, 2, 3}
	output := DownmixInt16(input, 1)
	if len(output) != len(input) {
		t.Fatalf("mono input should pass through, got length %d", len(output))
	}
	for i := range input {
		if output[i] != input[i] {
			t.Errorf("sample %d: expected %d, got %d", i, input[i], output[i])
		}
	}
}

func TestDownmixInt16_Empty(t *testing.T) {
	output := DownmixInt16(nil, 2)
	if len(output) != 0 {
		t.Errorf("expected empty output, got length %d", len(output))
	}
}

func TestResampleInt16_SameRate(t *testing.T) {
	input := []int16{100, 200, 300, 400, 500}
	output := ResampleInt16(input, 16000, 16000)
	if len(output) != len(input) {
		t.Errorf("expected same length %d, got %d", len(input), len(output))
	}
	for i := range input {
		if output[i] != input[i] {
			t.Errorf("sample %d: expected %d, got %d", i, input[i], output[i])
		}
	}
}

func TestResampleInt16_Upsample(t *testing.T) {
	input := []int16{0, 16384, 32767}
	output := ResampleInt16(input, 8000, 16000)
	if len(output) != 6 {
		t.Fatalf("expected length 6, got %d", len(output))
	}
	if output[0] != 0 {
		t.Errorf("first sample should be 0, got %d", output[0])
	}
	mid := output[1]
	if mid < 7000 || mid > 9500 {
		t.Errorf("interpolated sample should land between neighbors, got %d", mid)
	}
}

func TestResampleInt16_Downsample(t *testing.T) {
	input := make([]int16, 480) // 10ms at 48kHz
	output := ResampleInt16(input, 48000, 16000)
	if len(output) != 160 {
		t.Errorf("10ms at 16kHz should be 160 samples, got %d", len(output))
	}
}

func TestResampleInt16_Empty(t *testing.T) {
	output := ResampleInt16(nil, 48000, 16000)
	if len(output) != 0 {
		t.Errorf("expected empty output, got length %d", len(output))
	}
}

func TestPCMBytesToInt16(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	samples := PCMBytesToInt16(pcm)
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("sample 0: expected 0, got %d", samples[0])
	}
	if samples[1] != 32767 {
		t.Errorf("sample 1: expected 32767, got %d", samples[1])
	}
	if samples[2] != -32768 {
		t.Errorf("sample 2: expected -32768, got %d", samples[2])
	}
}

func TestPCMBytesToInt16_OddBytes(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0xFF}
	samples := PCMBytesToInt16(pcm)
	if len(samples) != 1 {
		t.Errorf("expected 1 sample for 3 bytes, got %d", len(samples))
	}
}

func TestInt16ToPCMBytes_RoundTrip(t *testing.T) {
	original := []int16{0, 1000, -1000, 32767, -32768}
	recovered := PCMBytesToInt16(Int16ToPCMBytes(original))
	if len(recovered) != len(original) {
		t.Fatalf("expected %d samples, got %d", len(original), len(recovered))
	}
	for i := range original {
		if recovered[i] != original[i] {
			t.Errorf("sample %d: expected %d, got %d", i, original[i], recovered[i])
		}
	}
}

func TestRMS_Silence(t *testing.T) {
	if rms := RMS(make([]int16, 1600)); rms != 0 {
		t.Errorf("silence should have RMS 0, got %f", rms)
	}
	if rms := RMS(nil); rms != 0 {
		t.Errorf("empty block should have RMS 0, got %f", rms)
	}
}

func TestRMS_ConstantAmplitude(t *testing.T) {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = 3000
	}
	rms := RMS(samples)
	if math.Abs(rms-3000) > 0.01 {
		t.Errorf("constant block RMS should equal its amplitude, got %f", rms)
	}
}

func TestRMS_SineWave(t *testing.T) {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16(10000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	rms := RMS(samples)
	expected := 10000 / math.Sqrt2
	if math.Abs(rms-expected) > 200 {
		t.Errorf("sine RMS should be ~amplitude/sqrt(2)=%f, got %f", expected, rms)
	}
}
