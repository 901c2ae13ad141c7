// Package audio provides helpers for working with raw little-endian PCM
// audio as it flows through the Vocalis gateway: byte/duration conversion,
// sample decoding, and basic stream validation.
//
// All functions assume signed 16-bit little-endian samples unless a sample
// width is passed explicitly.
package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// DefaultSampleRate is the sample rate assumed for sessions that never send
// a sampling_rate control field.
const DefaultSampleRate = 16000

// DefaultSampleWidth is the number of bytes per sample (16-bit PCM).
const DefaultSampleWidth = 2

// Duration returns the play-out duration of a PCM byte slice at the given
// sample rate and sample width. A non-positive rate or width yields zero.
func Duration(numBytes, sampleRate, sampleWidth int) time.Duration {
	if sampleRate <= 0 || sampleWidth <= 0 {
		return 0
	}
	samples := numBytes / sampleWidth
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// Seconds returns the play-out duration of a PCM byte slice in seconds as a
// float. This is the unit the segmentation settle-point arithmetic works in.
func Seconds(numBytes, sampleRate, sampleWidth int) float64 {
	if sampleRate <= 0 || sampleWidth <= 0 {
		return 0
	}
	return float64(numBytes) / float64(sampleRate*sampleWidth)
}

// BytesForSeconds returns the number of PCM bytes covering the given number
// of seconds at the given rate and width. Fractional byte counts are
// truncated towards zero.
func BytesForSeconds(seconds float64, sampleRate, sampleWidth int) int {
	if seconds <= 0 || sampleRate <= 0 || sampleWidth <= 0 {
		return 0
	}
	return int(seconds * float64(sampleRate) * float64(sampleWidth))
}

// DecodeSamples decodes signed 16-bit little-endian PCM bytes into int16
// samples. Returns an error if the byte count is odd, which indicates a
// corrupt or truncated stream.
func DecodeSamples(pcm []byte) ([]int16, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("audio: odd PCM byte count %d", len(pcm))
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples, nil
}

// EncodeSamples encodes int16 samples back into little-endian PCM bytes.
func EncodeSamples(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}
