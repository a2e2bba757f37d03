// Package wav provides minimal WAV header handling: probing engine output for
// its format, and building small files for tests.
package wav

import (
	"errors"
	"fmt"
	"time"
)

// HeaderSize is the size of a canonical PCM WAV header in bytes.
const HeaderSize = 44

// FormatPCM is the audio format code for uncompressed PCM.
const FormatPCM = 1

// Static errors.
var (
	// ErrTooShort indicates the data is smaller than a WAV header.
	ErrTooShort = errors.New("data too short for a WAV header")
	// ErrNotWAV indicates the RIFF/WAVE magic bytes are missing.
	ErrNotWAV = errors.New("data is not a RIFF/WAVE file")
)

// Info describes a probed WAV buffer.
type Info struct {
	SampleRate    int           `json:"sample_rate"`
	Channels      int           `json:"channels"`
	BitsPerSample int           `json:"bits_per_sample"`
	DataSize      int           `json:"data_size"`
	Duration      time.Duration `json:"duration"`
}

// Probe reads the header of a canonical WAV buffer and reports its format.
// Only the fixed 44-byte PCM layout is handled, which is what the engine
// produces.
func Probe(data []byte) (Info, error) {
	if len(data) < HeaderSize {
		return Info{}, fmt.Errorf("%w: got %d bytes", ErrTooShort, len(data))
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Info{}, ErrNotWAV
	}

	channels := int(le16(data[22:24]))
	sampleRate := int(le32(data[24:28]))
	bitsPerSample := int(le16(data[34:36]))
	dataSize := int(le32(data[40:44]))

	info := Info{
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: bitsPerSample,
		DataSize:      dataSize,
	}

	bytesPerSecond := sampleRate * channels * bitsPerSample / 8
	if bytesPerSecond > 0 {
		seconds := float64(dataSize) / float64(bytesPerSecond)
		info.Duration = time.Duration(seconds * float64(time.Second))
	}

	return info, nil
}

// WrapRawPCM adds a canonical WAV header to raw PCM data.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, HeaderSize)

	copy(header[0:4], "RIFF")
	putLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	putLE32(header[16:20], 16)
	putLE16(header[20:22], FormatPCM)
	putLE16(header[22:24], uint16(channels))
	putLE32(header[24:28], uint32(sampleRate))
	putLE32(header[28:32], uint32(byteRate))
	putLE16(header[32:34], uint16(blockAlign))
	putLE16(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	putLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// CreateMinimal builds a silent WAV buffer with the given format, useful as
// stand-in engine output in tests.
func CreateMinimal(numSamples, sampleRate, channels, bitsPerSample int) []byte {
	bytesPerSample := bitsPerSample / 8
	pcm := make([]byte, numSamples*channels*bytesPerSample)

	return WrapRawPCM(pcm, sampleRate, channels, bitsPerSample)
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
