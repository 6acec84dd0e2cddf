package audio

import (
	"encoding/binary"
	"fmt"
)

// DownmixMono reduces interleaved multi-channel samples to mono by averaging
// the channels of each frame. Samples are returned unchanged for mono input.
func DownmixMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}

	return mono
}

// Resample converts mono samples from one sample rate to another using
// linear interpolation between neighboring source samples.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen < 1 {
		outLen = 1
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}

	return out
}

// Float32ToInt16 converts normalized float samples to PCM-16 with clipping
func Float32ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(s * 32767)
	}
	return out
}

// Int16ToFloat32 converts PCM-16 samples to normalized float samples
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// BytesToFloat32 decodes little-endian PCM-16 bytes to normalized float samples
func BytesToFloat32(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm data length must be even, got %d bytes", len(data))
	}

	out := make([]float32, len(data)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(s) / 32768.0
	}

	return out, nil
}

// Float32ToBytes encodes normalized float samples as little-endian PCM-16 bytes
func Float32ToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range Float32ToInt16(samples) {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
