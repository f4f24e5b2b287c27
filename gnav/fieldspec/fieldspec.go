// The fieldspec package is a declarative description of the layout of the
// GLONASS navigation message: where each named field lives within each of
// the fifteen string types, how its bits should be interpreted and how the
// raw value converts to physical units.  It's pure data plus a small amount
// of extraction logic, so the protocol definition can be tested
// independently of the decoders that drive it.
//
// Bit positions follow the ICD's own numbering as used by the GNSS-SDR
// project: a position is a 1-based offset from the most significant
// (first transmitted) bit of the 85-bit data block.  In that numbering the
// 4-bit string ID starts at position 2 of every string and the eight
// check bits occupy positions 78-85.
//
// The fifteen string types fall into seven classes: strings 1 to 5 each
// have their own layout, the even almanac strings (6, 8, 10, 12 and 14)
// share one layout and the odd almanac strings (7, 9, 11, 13 and 15)
// share another.
package fieldspec

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-gnav/gnav/utils"
)

// Signedness says how the bits of a numeric field should be interpreted.
// The ICD is the authority, field by field: most physical quantities use a
// sign bit at the most significant position followed by a magnitude, but
// the system clock offsets tau_c and tau_GPS are two's complement (which
// is how the RTKLIB decoder reads them).
type Signedness int

const (
	// Unsigned fields are flags, counters and indexes.
	Unsigned Signedness = iota
	// SignMagnitude fields have a sign bit followed by a magnitude.
	SignMagnitude
	// TwosComplement fields are conventional signed integers.
	TwosComplement
)

// FieldSpec describes one field of a navigation string.
type FieldSpec struct {
	// Name is the field's name in the ICD, for example "x_n" or "tau_c".
	Name string
	// Start is the 1-based position of the field's first bit, counting
	// from the most significant bit of the 85-bit data block.
	Start uint
	// Length is the field length in bits.
	Length uint
	// Sign says how to interpret the bits.
	Sign Signedness
	// Scale converts the raw integer to physical units (radians, metres,
	// seconds...).  A scale of 1 leaves the raw value as it is.
	Scale float64
}

// StringIDStart and StringIDLength locate the string number, which is at
// the same place in every string.
const StringIDStart = 2
const StringIDLength = 4

// CheckBitsStart and CheckBitsLength locate the eight Hamming check bits
// (ICD bits 1-8, at the least significant end of the data block).
const CheckBitsStart = 78
const CheckBitsLength = 8

// String 1 carries the X components of the satellite's position, velocity
// and acceleration in PZ-90 coordinates, plus the time of frame start t_k.
// t_k is a composite of hours, minutes and a 30-second unit, so it appears
// here as three fields.
var String1 = []FieldSpec{
	{"P1", 8, 2, Unsigned, 1},
	{"t_k_hours", 10, 5, Unsigned, 1},
	{"t_k_minutes", 15, 6, Unsigned, 1},
	{"t_k_interval", 21, 1, Unsigned, 30},
	{"x_n_dot", 22, 24, SignMagnitude, utils.TwoToMinus20 * utils.KMToMetres},
	{"x_n_dot_dot", 46, 5, SignMagnitude, utils.TwoToMinus30 * utils.KMToMetres},
	{"x_n", 51, 27, SignMagnitude, utils.TwoToMinus11 * utils.KMToMetres},
}

// String 2 carries the Y components plus the health flag B_n and the
// ephemeris reference time index t_b (in units of 15 minutes within the
// current Moscow-time day).
var String2 = []FieldSpec{
	{"B_n", 6, 3, Unsigned, 1},
	{"P2", 9, 1, Unsigned, 1},
	{"t_b", 10, 7, Unsigned, 900},
	{"y_n_dot", 22, 24, SignMagnitude, utils.TwoToMinus20 * utils.KMToMetres},
	{"y_n_dot_dot", 46, 5, SignMagnitude, utils.TwoToMinus30 * utils.KMToMetres},
	{"y_n", 51, 27, SignMagnitude, utils.TwoToMinus11 * utils.KMToMetres},
}

// String 3 carries the Z components plus the relative frequency bias
// gamma_n and the health flag l_n.
var String3 = []FieldSpec{
	{"P3", 6, 1, Unsigned, 1},
	{"gamma_n", 7, 11, SignMagnitude, utils.TwoToMinus40},
	{"P", 19, 2, Unsigned, 1},
	{"l_n", 21, 1, Unsigned, 1},
	{"z_n_dot", 22, 24, SignMagnitude, utils.TwoToMinus20 * utils.KMToMetres},
	{"z_n_dot_dot", 46, 5, SignMagnitude, utils.TwoToMinus30 * utils.KMToMetres},
	{"z_n", 51, 27, SignMagnitude, utils.TwoToMinus11 * utils.KMToMetres},
}

// String 4 carries the satellite clock correction tau_n, the age and
// accuracy indicators, the day number N_T and the satellite's slot number.
var String4 = []FieldSpec{
	{"tau_n", 6, 22, SignMagnitude, utils.TwoToMinus30},
	{"delta_tau_n", 28, 5, SignMagnitude, utils.TwoToMinus30},
	{"E_n", 33, 5, Unsigned, 1},
	{"P4", 52, 1, Unsigned, 1},
	{"F_T", 53, 4, Unsigned, 1},
	{"N_T", 60, 11, Unsigned, 1},
	{"n", 71, 5, Unsigned, 1},
	{"M", 76, 2, Unsigned, 1},
}

// String 5 carries the receiver-wide time state: the almanac day N_A, the
// GLONASS-UTC offset tau_c, the four-year interval number N_4 and the
// GLONASS-GPS offset tau_GPS.
var String5 = []FieldSpec{
	{"N_A", 6, 11, Unsigned, 1},
	{"tau_c", 17, 32, TwosComplement, utils.TwoToMinus31},
	{"N_4", 50, 5, Unsigned, 1},
	{"tau_gps", 55, 22, TwosComplement, utils.TwoToMinus30},
	{"l_n", 77, 1, Unsigned, 1},
}

// The even almanac strings (6, 8, 10, 12, 14) carry the first half of an
// almanac entry: the slot n_A it describes, its clock correction and the
// longitude, inclination correction and eccentricity of its orbit.
// Angles are in semicircles on the wire; the scale converts to radians.
var StringEven = []FieldSpec{
	{"C_n", 6, 1, Unsigned, 1},
	{"M_n_A", 7, 2, Unsigned, 1},
	{"n_A", 9, 5, Unsigned, 1},
	{"tau_n_A", 14, 10, SignMagnitude, utils.TwoToMinus18},
	{"lambda_n_A", 24, 21, SignMagnitude, utils.TwoToMinus20 * semiCircle},
	{"delta_i_n_A", 45, 18, SignMagnitude, utils.TwoToMinus20 * semiCircle},
	{"epsilon_n_A", 63, 15, Unsigned, utils.TwoToMinus20},
}

// The odd almanac strings (7, 9, 11, 13, 15) carry the second half: the
// argument of perigee, the time of ascending node, the orbital period
// correction and its drift, and the carrier frequency number H_n_A.
var StringOdd = []FieldSpec{
	{"omega_n_A", 6, 16, SignMagnitude, utils.TwoToMinus15 * semiCircle},
	{"t_lambda_n_A", 22, 21, Unsigned, utils.TwoToMinus5},
	{"delta_T_n_A", 43, 22, SignMagnitude, utils.TwoToMinus9},
	{"delta_T_dot_n_A", 65, 7, SignMagnitude, utils.TwoToMinus14},
	{"H_n_A", 72, 5, Unsigned, 1},
	{"l_n", 77, 1, Unsigned, 1},
}

// semiCircle converts semicircles to radians when folded into a scale.
const semiCircle = 3.1415926535898

// tables maps each string number 1-15 to its field table.
var tables = map[uint][]FieldSpec{
	1:  String1,
	2:  String2,
	3:  String3,
	4:  String4,
	5:  String5,
	6:  StringEven,
	8:  StringEven,
	10: StringEven,
	12: StringEven,
	14: StringEven,
	7:  StringOdd,
	9:  StringOdd,
	11: StringOdd,
	13: StringOdd,
	15: StringOdd,
}

// Get returns the field table for the given string number, or false if
// the string number is not one that this software knows how to decode.
func Get(stringID uint) ([]FieldSpec, bool) {
	table, ok := tables[stringID]
	return table, ok
}

// StringID extracts the string number from a data block.
func StringID(block []byte) uint {
	return uint(utils.GetBitsAsUint64(block, StringIDStart-1, StringIDLength))
}

// Unscaled extracts the field's raw integer value from the 85-bit data
// block, honouring the field's signedness but not its scale.
func (field *FieldSpec) Unscaled(block []byte) int64 {
	pos := field.Start - 1
	switch field.Sign {
	case SignMagnitude:
		return utils.GetBitsAsSignMagnitude(block, pos, field.Length)
	case TwosComplement:
		return utils.GetBitsAsInt64(block, pos, field.Length)
	default:
		return int64(utils.GetBitsAsUint64(block, pos, field.Length))
	}
}

// Value extracts the field from the data block and converts it to
// physical units.
func (field *FieldSpec) Value(block []byte) float64 {
	return float64(field.Unscaled(block)) * field.Scale
}

// Uint extracts an unsigned field (a flag, counter or index) from the
// data block.
func (field *FieldSpec) Uint(block []byte) uint {
	pos := field.Start - 1
	return uint(utils.GetBitsAsUint64(block, pos, field.Length))
}

// Put sets the field's bits in the data block from a raw integer value,
// honouring the field's signedness.  It's the inverse of Unscaled and is
// used to build strings for testing.
func (field *FieldSpec) Put(block []byte, value int64) {
	pos := field.Start - 1
	var bits uint64
	switch field.Sign {
	case SignMagnitude:
		bits = utils.EncodeSignMagnitude(value, field.Length)
	case TwosComplement:
		bits = utils.EncodeTwosComplement(value, field.Length)
	default:
		bits = uint64(value)
	}
	utils.SetBitsFromUint64(block, pos, field.Length, bits)
}

// Decode extracts every field of the given string type from the data
// block and returns a mapping from field name to physical value.  An
// unknown string number gives an error, which the caller should treat as
// a decode-skip rather than a failure.
func Decode(stringID uint, block []byte) (map[string]float64, error) {
	table, ok := Get(stringID)
	if !ok {
		return nil, fmt.Errorf("unknown string number %d", stringID)
	}
	fields := make(map[string]float64)
	for i := range table {
		fields[table[i].Name] = table[i].Value(block)
	}
	return fields, nil
}

// Find returns the named field of the given string type.  It's a helper
// for the typed message decoders, so a misnamed field is a programming
// error.
func Find(stringID uint, name string) (*FieldSpec, error) {
	table, ok := Get(stringID)
	if !ok {
		return nil, fmt.Errorf("unknown string number %d", stringID)
	}
	for i := range table {
		if table[i].Name == name {
			return &table[i], nil
		}
	}
	return nil, errors.New("no field " + name + " in string " +
		fmt.Sprintf("%d", stringID))
}
