// The testdata package builds valid navigation strings, frames and
// symbol streams for the unit tests.  Nothing here runs in production.
package testdata

import (
	"time"

	"github.com/goblimey/go-gnav/gnav/fieldspec"
	"github.com/goblimey/go-gnav/gnav/hamming"
	"github.com/goblimey/go-gnav/gnav/pushback"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// BuildString constructs the 85-bit data block of a navigation string:
// the string number, the given fields (raw unscaled values, keyed by
// field name) and valid check bits.  An unknown field name panics - the
// tests are the only caller and a bad name is a test bug.
func BuildString(stringID uint, values map[string]int64) [utils.DataLengthBytes]byte {
	var block [utils.DataLengthBytes]byte
	utils.SetBitsFromUint64(block[:], fieldspec.StringIDStart-1,
		fieldspec.StringIDLength, uint64(stringID))
	for name, value := range values {
		field, err := fieldspec.Find(stringID, name)
		if err != nil {
			panic(err)
		}
		field.Put(block[:], value)
	}
	hamming.Apply(block[:])
	return block
}

// Symbols turns a sequence of data blocks into the bit stream a
// tracking channel would deliver: each block preceded by the 30-bit
// time mark, timestamps advancing at the 50 bit/s message rate.  If
// inverted is true every bit is flipped, imitating a tracking channel
// that locked onto the carrier with the wrong phase sign.
func Symbols(blocks [][utils.DataLengthBytes]byte, start time.Time, inverted bool) []pushback.Symbol {

	symbols := make([]pushback.Symbol, 0,
		len(blocks)*utils.StringLengthBits)
	now := start

	push := func(bit byte) {
		if inverted {
			bit ^= 1
		}
		symbols = append(symbols, pushback.Symbol{Bit: bit, Time: now})
		now = now.Add(utils.BitDuration)
	}

	for b := range blocks {
		for i := utils.TimeMarkLengthBits - 1; i >= 0; i-- {
			push(byte(utils.TimeMark>>uint(i)) & 1)
		}
		for i := uint(0); i < utils.DataLengthBits; i++ {
			push((blocks[b][i/8] >> (7 - i%8)) & 1)
		}
	}

	return symbols
}

// LeadingZeros returns n zero bits, for putting some non-message signal
// in front of a stream so the synchronizer has to search for the first
// time mark.  An all-zero window can never correlate: the time mark has
// 16 one bits, so a zero window disagrees with it in 16 places and with
// its complement in 14.
func LeadingZeros(n int, start time.Time) []pushback.Symbol {
	symbols := make([]pushback.Symbol, n)
	now := start
	for i := range symbols {
		symbols[i] = pushback.Symbol{Bit: 0, Time: now}
		now = now.Add(utils.BitDuration)
	}
	return symbols
}

// Slot3FrameValues returns the raw field values, keyed by string
// number and field name, of the canned frame built by Slot3Frame - a
// plausible frame from the satellite in slot 3 with N_4=7 and N_T=100.
// The even almanac strings carry slot number zero (the pattern a
// satellite transmits in unused almanac positions), so the frame
// completes no almanac pairs.
func Slot3FrameValues() map[uint]map[string]int64 {
	values := map[uint]map[string]int64{
		1: {
			"P1":           1,
			"t_k_hours":    11,
			"t_k_minutes":  15,
			"t_k_interval": 1,
			"x_n_dot":      -721358,
			"x_n_dot_dot":  -5,
			"x_n":          22803811,
		},
		2: {
			"B_n":         0,
			"P2":          1,
			"t_b":         45,
			"y_n_dot":     2465173,
			"y_n_dot_dot": 3,
			"y_n":         -14226341,
		},
		3: {
			"P3":          1,
			"gamma_n":     -353,
			"P":           1,
			"l_n":         0,
			"z_n_dot":     1519262,
			"z_n_dot_dot": -1,
			"z_n":         18904443,
		},
		4: {
			"tau_n":       -76452,
			"delta_tau_n": 3,
			"E_n":         0,
			"P4":          1,
			"F_T":         4,
			"N_T":         100,
			"n":           3,
			"M":           1,
		},
		5: {
			"N_A":     100,
			"tau_c":   -214580,
			"N_4":     7,
			"tau_gps": 357,
			"l_n":     0,
		},
	}

	// The almanac strings: even halves with slot number 0 (unused), odd
	// halves with arbitrary orbital values.
	for _, id := range []uint{6, 8, 10, 12, 14} {
		values[id] = map[string]int64{
			"C_n":         0,
			"M_n_A":       0,
			"n_A":         0,
			"tau_n_A":     0,
			"lambda_n_A":  0,
			"delta_i_n_A": 0,
			"epsilon_n_A": 0,
		}
	}
	for _, id := range []uint{7, 9, 11, 13, 15} {
		values[id] = map[string]int64{
			"omega_n_A":       0,
			"t_lambda_n_A":    0,
			"delta_T_n_A":     0,
			"delta_T_dot_n_A": 0,
			"H_n_A":           0,
			"l_n":             0,
		}
	}

	return values
}

// Slot3Frame builds the canned frame described by Slot3FrameValues -
// fifteen checksummed strings in transmission order.
func Slot3Frame() [][utils.DataLengthBytes]byte {
	values := Slot3FrameValues()
	blocks := make([][utils.DataLengthBytes]byte, 0, utils.StringsPerFrame)
	for id := uint(1); id <= utils.StringsPerFrame; id++ {
		blocks = append(blocks, BuildString(id, values[id]))
	}
	return blocks
}

// AlmanacPair builds a valid even/odd almanac string pair describing
// the given slot, using the given even string number (6, 8, 10, 12 or
// 14).
func AlmanacPair(evenStringID, slot uint) (even, odd [utils.DataLengthBytes]byte) {
	even = BuildString(evenStringID, map[string]int64{
		"C_n":         1,
		"M_n_A":       1,
		"n_A":         int64(slot),
		"tau_n_A":     -120,
		"lambda_n_A":  349525,
		"delta_i_n_A": 17476,
		"epsilon_n_A": 419,
	})
	odd = BuildString(evenStringID+1, map[string]int64{
		"omega_n_A":       -10923,
		"t_lambda_n_A":    1048576,
		"delta_T_n_A":     -1311,
		"delta_T_dot_n_A": 2,
		"H_n_A":           5,
		"l_n":             0,
	})
	return even, odd
}
