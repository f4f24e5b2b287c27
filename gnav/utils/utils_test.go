package utils

import (
	"testing"

	"pgregory.net/rapid"
)

// TestGetBitsAsUint64 checks extraction of unsigned bit fields.
func TestGetBitsAsUint64(t *testing.T) {
	buffer := []byte{0xa5, 0x0f, 0xf0, 0x81}

	var testData = []struct {
		description string
		pos         uint
		length      uint
		want        uint64
	}{
		{"single top bit", 0, 1, 1},
		{"first byte", 0, 8, 0xa5},
		{"nibble straddling bytes", 4, 8, 0x50},
		{"three bytes", 0, 24, 0xa50ff0},
		{"bottom bit", 31, 1, 1},
	}

	for _, td := range testData {
		got := GetBitsAsUint64(buffer, td.pos, td.length)
		if got != td.want {
			t.Errorf("%s: want 0x%x got 0x%x", td.description, td.want, got)
		}
	}
}

// TestGetBitsAsInt64 checks extraction of two's complement fields.
func TestGetBitsAsInt64(t *testing.T) {
	// 0xff in 8 bits is -1, 0x80 is -128, 0x7f is 127.
	buffer := []byte{0xff, 0x80, 0x7f}

	var testData = []struct {
		description string
		pos         uint
		length      uint
		want        int64
	}{
		{"minus one", 0, 8, -1},
		{"most negative", 8, 8, -128},
		{"most positive", 16, 8, 127},
		{"minus one across bytes", 4, 8, -8},
	}

	for _, td := range testData {
		got := GetBitsAsInt64(buffer, td.pos, td.length)
		if got != td.want {
			t.Errorf("%s: want %d got %d", td.description, td.want, got)
		}
	}
}

// TestGetBitsAsSignMagnitude checks extraction of sign and magnitude
// fields - the representation most numeric fields of the navigation
// message use.
func TestGetBitsAsSignMagnitude(t *testing.T) {
	// 0x85 in 8 bits is sign 1 magnitude 5, so -5.  0x05 is 5.
	buffer := []byte{0x85, 0x05, 0xff}

	var testData = []struct {
		description string
		pos         uint
		length      uint
		want        int64
	}{
		{"negative", 0, 8, -5},
		{"positive", 8, 8, 5},
		{"all ones", 16, 8, -127},
		{"magnitude zero", 1, 4, 0},
	}

	for _, td := range testData {
		got := GetBitsAsSignMagnitude(buffer, td.pos, td.length)
		if got != td.want {
			t.Errorf("%s: want %d got %d", td.description, td.want, got)
		}
	}
}

// TestSetBitsRoundTrip checks that SetBitsFromUint64 is the inverse of
// GetBitsAsUint64 for arbitrary positions, lengths and values.
func TestSetBitsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buffer := make([]byte, DataLengthBytes)
		length := rapid.UintRange(1, 64).Draw(t, "length")
		maxPos := uint(DataLengthBytes*8) - length
		pos := rapid.UintRange(0, maxPos).Draw(t, "pos")
		var max uint64 = 1<<length - 1
		if length == 64 {
			max = ^uint64(0)
		}
		value := rapid.Uint64Range(0, max).Draw(t, "value")

		SetBitsFromUint64(buffer, pos, length, value)
		got := GetBitsAsUint64(buffer, pos, length)
		if got != value {
			t.Fatalf("want 0x%x got 0x%x", value, got)
		}
	})
}

// TestSignMagnitudeRoundTrip checks that EncodeSignMagnitude is the
// inverse of GetBitsAsSignMagnitude.
func TestSignMagnitudeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buffer := make([]byte, DataLengthBytes)
		length := rapid.UintRange(2, 27).Draw(t, "length")
		maxMagnitude := int64(1)<<(length-1) - 1
		value := rapid.Int64Range(-maxMagnitude, maxMagnitude).Draw(t, "value")

		SetBitsFromUint64(buffer, 0, length, EncodeSignMagnitude(value, length))
		got := GetBitsAsSignMagnitude(buffer, 0, length)
		if got != value {
			t.Fatalf("length %d: want %d got %d", length, value, got)
		}
	})
}

// TestTwosComplementRoundTrip checks that EncodeTwosComplement is the
// inverse of GetBitsAsInt64.
func TestTwosComplementRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buffer := make([]byte, DataLengthBytes)
		length := rapid.UintRange(2, 32).Draw(t, "length")
		min := -(int64(1) << (length - 1))
		max := int64(1)<<(length-1) - 1
		value := rapid.Int64Range(min, max).Draw(t, "value")

		SetBitsFromUint64(buffer, 0, length, EncodeTwosComplement(value, length))
		got := GetBitsAsInt64(buffer, 0, length)
		if got != value {
			t.Fatalf("length %d: want %d got %d", length, value, got)
		}
	})
}

// TestTimeMark checks the time mark constant against the pattern from
// the ICD, written out longhand.
func TestTimeMark(t *testing.T) {
	const pattern = "111110001101110101000010010110"
	var want uint32
	for _, c := range pattern {
		want <<= 1
		if c == '1' {
			want |= 1
		}
	}
	if TimeMark != want {
		t.Errorf("want 0x%x got 0x%x", want, TimeMark)
	}
	if len(pattern) != TimeMarkLengthBits {
		t.Errorf("want %d bits got %d", TimeMarkLengthBits, len(pattern))
	}
}

// TestEqualWithin checks the floating point comparison helper.
func TestEqualWithin(t *testing.T) {
	var testData = []struct {
		precision uint
		f1        float64
		f2        float64
		want      bool
	}{
		{3, 1.0004, 1.0005, false},
		{3, 1.00004, 1.00005, true},
		{6, 1.00000004, 1.00000005, true},
		{0, 1.4, 1.5, false},
	}

	for _, td := range testData {
		got := EqualWithin(td.precision, td.f1, td.f2)
		if got != td.want {
			t.Errorf("EqualWithin(%d, %f, %f): want %v got %v",
				td.precision, td.f1, td.f2, td.want, got)
		}
	}
}
