package store

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	for _, count := range []int{1, 2, 3, 7} {
		samples := make([][]float32, count)
		for i := range samples {
			samples[i] = []float32{float32(i), float32(i) + 0.5, -float32(i)}
		}

		decoded, err := decodeRecord(encodeRecord(samples))
		if err != nil {
			t.Fatalf("count=%d: decode failed: %v", count, err)
		}
		if len(decoded) != count {
			t.Fatalf("count=%d: got %d samples", count, len(decoded))
		}
		for i := range samples {
			for j := range samples[i] {
				if decoded[i][j] != samples[i][j] {
					t.Errorf("count=%d: sample[%d][%d] = %v, want %v",
						count, i, j, decoded[i][j], samples[i][j])
				}
			}
		}
	}
}

// encodeLegacy builds a record in the pre-versioned single-sample layout.
func encodeLegacy(sample []float32) []byte {
	buf := make([]byte, 4+len(sample)*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(sample)))
	for i, v := range sample {
		binary.LittleEndian.PutUint32(buf[4+i*4:8+i*4], math.Float32bits(v))
	}
	return buf
}

func TestDecodeLegacyRecord(t *testing.T) {
	sample := []float32{0.25, -0.5, 0.125, 1.0}

	decoded, err := decodeRecord(encodeLegacy(sample))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("got %d samples, want 1", len(decoded))
	}
	for i, v := range sample {
		if decoded[0][i] != v {
			t.Errorf("sample[%d] = %v, want %v", i, decoded[0][i], v)
		}
	}
}

func TestDecodeCorruptRecords(t *testing.T) {
	valid := encodeRecord([][]float32{{1, 2, 3}})

	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"too short", []byte{1, 0}},
		{"truncated multi-sample", valid[:len(valid)-1]},
		{"extended multi-sample", append(append([]byte{}, valid...), 0)},
		{"truncated legacy", encodeLegacy([]float32{1, 2, 3})[:10]},
		{"negative count", func() []byte {
			b := append([]byte{}, valid...)
			binary.LittleEndian.PutUint32(b[0:4], uint32(0xFFFFFFFF))
			return b
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRecord(tt.raw)
			if !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("decodeRecord() error = %v, want ErrCorruptRecord", err)
			}
		})
	}
}

// A legacy record whose dimension happens to equal a plausible sample count
// must still decode as legacy unless the multi-sample size matches exactly.
func TestDecodeAmbiguousHeaderPrefersExactFit(t *testing.T) {
	// count=2, dim=2 → 8 + 16 = 24 bytes, a valid multi-sample record.
	multi := encodeRecord([][]float32{{1, 2}, {3, 4}})
	decoded, err := decodeRecord(multi)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != 2 || len(decoded[0]) != 2 {
		t.Fatalf("got %dx%d, want 2x2", len(decoded), len(decoded[0]))
	}

	// Legacy dim=5 → 4 + 20 = 24 bytes too, but the second int32 is float
	// bits, which only decodes as multi-sample if the size fits exactly.
	legacy := encodeLegacy([]float32{1, 2, 3, 4, 5})
	decoded, err = decodeRecord(legacy)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != 1 || len(decoded[0]) != 5 {
		t.Fatalf("got %d samples of dim %d, want 1x5", len(decoded), len(decoded[0]))
	}
}
