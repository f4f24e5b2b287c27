// The utils package contains general-purpose constants and functions for
// the GNAV software.
package utils

import (
	"log"
	"math"
	"time"

	"github.com/goblimey/go-tools/dailylogger"
)

// The GLONASS L1 C/A navigation message (the "GNAV" message) is a sequence
// of 115-bit strings.  Each string starts with a fixed 30-bit time mark
// followed by 85 data bits.  Fifteen strings make a frame (30 seconds) and
// five frames make a superframe (150 seconds), which carries one complete
// almanac cycle.  See the GLONASS Interface Control Document (Edition 5.1)
// for the details.  The structure can also be reverse-engineered from
// existing software such as the RTKLIB library, which is written in the C
// programming language.

// TimeMarkLengthBits is the length of the time mark at the start of
// every string.
const TimeMarkLengthBits = 30

// DataLengthBits is the number of data bits in a string, including the
// eight check bits.
const DataLengthBits = 85

// DataLengthBytes is the data block of a string packed into bytes,
// most significant bit first, with three zero bits of padding at the end.
const DataLengthBytes = 11

// StringLengthBits is the total length of a string - the time mark
// followed by the data bits.
const StringLengthBits = TimeMarkLengthBits + DataLengthBits

// StringsPerFrame is the number of strings in a frame.
const StringsPerFrame = 15

// FramesPerSuperframe is the number of frames in a superframe.
const FramesPerSuperframe = 5

// FrameLengthBits is the number of bits in a frame.
const FrameLengthBits = StringLengthBits * StringsPerFrame

// StringSeconds is the duration of one string in seconds.
const StringSeconds = 2

// FrameSeconds is the duration of one frame in seconds.
const FrameSeconds = StringSeconds * StringsPerFrame

// BitRate is the navigation message bit rate in bits per second.
const BitRate = 50

// SymbolsPerBit is the number of transmitted symbols per navigation bit.
// The tracking front end resolves the symbols, so this software consumes
// one item per bit.
const SymbolsPerBit = 10

// BitDuration is the duration of one navigation bit.
const BitDuration = time.Second / BitRate

// TimeMark is the fixed 30-bit time mark pattern, packed into the
// bottom 30 bits of a uint32, first-transmitted bit at the top:
// 1111 1000 1101 1101 0100 0010 0101 10.
const TimeMark uint32 = 0x3e375096

// TimeMarkMask selects the bottom 30 bits of a correlator window.
const TimeMarkMask uint32 = 0x3fffffff

// MaxStringID is the largest legal string number.  String numbers 1-15
// appear in the 4-bit string ID field; 0 is reserved ("idle") and
// anything else is a decode error upstream.
const MaxStringID = 15

// MaxAlmanacSlot is the number of almanac slots (and of satellites in a
// full constellation).
const MaxAlmanacSlot = 24

// Scale factors for the numeric fields.  The ICD gives each field a scale
// of two to some negative power; positions, velocities and accelerations
// are in km-based units which this software converts to metres.
const (
	// TwoToMinus5 scales the almanac time of ascending node (seconds).
	TwoToMinus5 = 1.0 / (1 << 5)

	// TwoToMinus9 scales the almanac orbital period correction (seconds).
	TwoToMinus9 = 1.0 / (1 << 9)

	// TwoToMinus11 scales satellite coordinates (km).
	TwoToMinus11 = 1.0 / (1 << 11)

	// TwoToMinus14 scales the almanac period drift (seconds per orbit squared).
	TwoToMinus14 = 1.0 / (1 << 14)

	// TwoToMinus15 scales the almanac argument of perigee (semicircles).
	TwoToMinus15 = 1.0 / (1 << 15)

	// TwoToMinus18 scales the almanac clock correction (seconds).
	TwoToMinus18 = 1.0 / (1 << 18)

	// TwoToMinus20 scales satellite velocities (km/s) and several almanac
	// angles (semicircles).
	TwoToMinus20 = 1.0 / (1 << 20)

	// TwoToMinus30 scales satellite accelerations (km/s/s) and the
	// clock corrections tau_n and delta_tau_n (seconds).
	TwoToMinus30 = 1.0 / (1 << 30)

	// TwoToMinus31 scales the GLONASS-UTC offset tau_c (seconds).
	TwoToMinus31 = 1.0 / (1 << 31)

	// TwoToMinus40 scales the relative frequency bias gamma_n.
	TwoToMinus40 = 1.0 / (1 << 40)
)

// KMToMetres converts the ICD's km-based units to metres.
const KMToMetres = 1000.0

// GlonassTimeOffset is the offset to convert GLONASS time to UTC.
// GLONASS keeps Moscow time which is 3 hours ahead of UTC.
var GlonassTimeOffset = time.Duration(-3) * time.Hour

// GPSLeapSeconds is the duration that GPS time is ahead of UTC in
// seconds, correct from the start of 2017/01/01.  An extra leap second
// may be added every few years.
const GPSLeapSeconds = 18

// LocationUTC is the UTC timezone.
var LocationUTC *time.Location

// LocationMoscow is the timezone in which the GLONASS day starts.  The
// system keeps a fixed UTC+3, so a fixed zone is used rather than the
// IANA Europe/Moscow zone, which has a complicated DST history.
var LocationMoscow *time.Location

// DateLayout defines the layout of dates when they are displayed.  It
// produces "yyyy-mm-dd hh:mm:ss.ms timeshift timezone", for example
// "2023-05-12 00:00:05 +0000 UTC".
const DateLayout = "2006-01-02 15:04:05.999 -0700 MST"

func init() {
	LocationUTC, _ = time.LoadLocation("UTC")
	LocationMoscow = time.FixedZone("MSK", 3*3600)
}

// SemiCirclesToRadians converts an angle in semicircles to radians.
func SemiCirclesToRadians(semiCircles float64) float64 {
	return semiCircles * math.Pi
}

// GetBitsAsUint64 extracts length bits from a slice of bytes, starting
// at bit position pos (zero-based, most significant bit of the first
// byte first) and returns them as a uint64.  See RTKLIB's getbitu.
func GetBitsAsUint64(buff []byte, pos uint, length uint) uint64 {
	var result uint64
	for i := pos; i < pos+length; i++ {
		byteNumber := i / 8
		shiftBy := 7 - i%8
		bit := (uint64(buff[byteNumber]) >> shiftBy) & 1
		result = (result << 1) | bit
	}
	return result
}

// GetBitsAsInt64 extracts length bits from a slice of bytes starting at
// bit position pos, interprets the bits as a two's-complement integer and
// returns the result as a 64-bit signed int.  See RTKLIB's getbits.
func GetBitsAsInt64(buff []byte, pos uint, length uint) int64 {
	negative := GetBitsAsUint64(buff, pos, 1) == 1
	uval := GetBitsAsUint64(buff, pos, length)
	if negative {
		// Subtract the weight of the top bit twice - once because it's
		// already included in uval and once for the two's complement.
		var mask uint64 = 1 << (length - 1)
		return int64(uval) - 2*int64(mask)
	}
	return int64(uval)
}

// GetBitsAsSignMagnitude extracts length bits from a slice of bytes
// starting at bit position pos and interprets them as a sign bit at the
// most significant position followed by a magnitude.  Most numeric fields
// of the GLONASS navigation message use this representation rather than
// two's complement.  See RTKLIB's getbitg.
func GetBitsAsSignMagnitude(buff []byte, pos uint, length uint) int64 {
	value := int64(GetBitsAsUint64(buff, pos+1, length-1))
	if GetBitsAsUint64(buff, pos, 1) == 1 {
		return -value
	}
	return value
}

// SetBitsFromUint64 sets length bits in the slice of bytes, starting at
// bit position pos (zero-based, MSB of the first byte first) from the
// bottom length bits of value.  It's the inverse of GetBitsAsUint64 and
// is used to build messages for testing.
func SetBitsFromUint64(buff []byte, pos uint, length uint, value uint64) {
	for i := uint(0); i < length; i++ {
		bitNumber := pos + length - 1 - i
		byteNumber := bitNumber / 8
		shiftBy := 7 - bitNumber%8
		if value&(1<<i) != 0 {
			buff[byteNumber] |= 1 << shiftBy
		} else {
			buff[byteNumber] &^= 1 << shiftBy
		}
	}
}

// EncodeSignMagnitude converts a signed integer to its sign-magnitude
// bit pattern in a field of the given length.  It's used to build
// messages for testing.
func EncodeSignMagnitude(value int64, length uint) uint64 {
	if value < 0 {
		return 1<<(length-1) | uint64(-value)
	}
	return uint64(value)
}

// EncodeTwosComplement converts a signed integer to its two's-complement
// bit pattern in a field of the given length.
func EncodeTwosComplement(value int64, length uint) uint64 {
	mask := uint64(1)<<length - 1
	return uint64(value) & mask
}

// GetDailyLogger gets a daily log file which can be written to as a logger
// (each line decorated with filename, date, time, etc).
func GetDailyLogger(directory, prefix string) *log.Logger {
	dailyLog := dailylogger.New(directory, prefix+".", ".log")
	logFlags := log.LstdFlags | log.Lshortfile | log.Lmicroseconds
	return log.New(dailyLog, prefix, logFlags)
}

// EqualWithin return true if the given float64 values are equal
// within (precision) decimal places after rounding.  (This can fail if
// either of the numbers or the difference between them are too large.)
func EqualWithin(precision uint, f1, f2 float64) bool {

	// see http://docs.oracle.com/cd/E19957-01/806-3568/ncg_goldberg.html

	var scaleFactor float64 = math.Pow(10, float64(precision))

	f1 = math.Round(f1 * scaleFactor)
	f2 = math.Round(f2 * scaleFactor)

	return math.Abs(f1-f2) <= 0.1
}
