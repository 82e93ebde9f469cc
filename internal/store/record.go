package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Profile records are stored in a versioned binary layout:
//
//	int32 sampleCount | int32 dimension | sampleCount*dimension*float32
//
// all little-endian, samples row-major. Older databases hold a single-sample
// layout without the count prefix:
//
//	int32 dimension | dimension*float32
//
// decodeRecord accepts both; encodeRecord always writes the current layout.

const (
	recordHeaderSize = 8
	legacyHeaderSize = 4
	floatSize        = 4
)

// encodeRecord serializes a non-empty list of equal-dimension samples.
func encodeRecord(samples [][]float32) []byte {
	dim := 0
	if len(samples) > 0 {
		dim = len(samples[0])
	}

	buf := make([]byte, recordHeaderSize+len(samples)*dim*floatSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(samples)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(dim))

	off := recordHeaderSize
	for _, sample := range samples {
		for _, v := range sample {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += floatSize
		}
	}
	return buf
}

// decodeRecord parses a profile record in either the current multi-sample
// layout or the legacy single-sample layout. The first int32 is read as a
// tentative sample count; the multi-sample interpretation is accepted only
// when both header fields are positive and the implied size matches the
// record length exactly. Otherwise the first int32 is treated as a legacy
// dimension. Any size mismatch in either branch is a corrupt record, never
// a silent truncation.
func decodeRecord(raw []byte) ([][]float32, error) {
	if len(raw) < legacyHeaderSize {
		return nil, fmt.Errorf("%w: record too short (%d bytes)", ErrCorruptRecord, len(raw))
	}

	first := int32(binary.LittleEndian.Uint32(raw[0:4]))

	if len(raw) >= recordHeaderSize {
		count := int64(first)
		dim := int64(int32(binary.LittleEndian.Uint32(raw[4:8])))
		if count > 0 && dim > 0 && recordHeaderSize+count*dim*floatSize == int64(len(raw)) {
			return decodeSamples(raw[recordHeaderSize:], int(count), int(dim)), nil
		}
	}

	// Legacy layout: first int32 is the dimension of a single sample.
	dim := int64(first)
	if dim <= 0 || legacyHeaderSize+dim*floatSize != int64(len(raw)) {
		return nil, fmt.Errorf("%w: %d bytes do not fit any known layout", ErrCorruptRecord, len(raw))
	}
	return decodeSamples(raw[legacyHeaderSize:], 1, int(dim)), nil
}

func decodeSamples(data []byte, count, dim int) [][]float32 {
	samples := make([][]float32, count)
	off := 0
	for i := range samples {
		sample := make([]float32, dim)
		for j := range sample {
			sample[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += floatSize
		}
		samples[i] = sample
	}
	return samples
}
