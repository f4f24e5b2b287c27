package typeodd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-gnav/gnav/fieldspec"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// This package handles the odd-numbered almanac strings (7, 9, 11, 13
// and 15), which all share one layout.  An odd string carries the second
// half of the almanac entry started by the even string before it: the
// argument of perigee, the time of the ascending node passage, the
// orbital period correction and its drift, and the carrier frequency
// number.
//
// The odd strings do not repeat the slot number n_A - the pairing with
// the preceding even string is positional, which is why the assembler
// insists on seeing the two halves back to back.

// referenceStringID is a string number with the odd almanac layout,
// used to look up the field table.
const referenceStringID = 7

var (
	fieldOmega     = field("omega_n_A")
	fieldTLambda   = field("t_lambda_n_A")
	fieldDeltaT    = field("delta_T_n_A")
	fieldDeltaTDot = field("delta_T_dot_n_A")
	fieldHna       = field("H_n_A")
	fieldLn        = field("l_n")
)

func field(name string) *fieldspec.FieldSpec {
	f, err := fieldspec.Find(referenceStringID, name)
	if err != nil {
		panic(err)
	}
	return f
}

// Message contains an odd-numbered almanac string.
type Message struct {
	// StringID is the string number, one of 7, 9, 11, 13 or 15.
	StringID uint `json:"string_id,omitempty"`

	// OmegaNa is the argument of perigee - sign and magnitude, scaled
	// 2^-15 semicircles, converted here to radians.
	OmegaNa float64 `json:"omega_n_a,omitempty"`

	// TLambdaNa is the time of the first ascending node passage within
	// the day N_A - unsigned, scaled 2^-5, in seconds.
	TLambdaNa float64 `json:"t_lambda_n_a,omitempty"`

	// DeltaTNa is the correction to the nominal orbital period - sign
	// and magnitude, scaled 2^-9, in seconds per orbit.
	DeltaTNa float64 `json:"delta_t_n_a,omitempty"`

	// DeltaTDotNa is the rate of change of the orbital period - sign
	// and magnitude, scaled 2^-14, in seconds per orbit squared.
	DeltaTDotNa float64 `json:"delta_t_dot_n_a,omitempty"`

	// Hna - uint5 - the carrier frequency number of the satellite in
	// slot n_A.
	Hna uint `json:"h_n_a,omitempty"`

	// Ln - uint1 - health flag: 1 means malfunction.
	Ln uint `json:"l_n,omitempty"`

	// logLevel is a slog-style logging level.
	logLevel slog.Level
}

// New creates a new odd almanac message.
func New(stringID uint, omegaNa, tLambdaNa, deltaTNa, deltaTDotNa float64,
	hna, ln uint, logLevel slog.Level) *Message {

	message := Message{
		StringID:    stringID,
		OmegaNa:     omegaNa,
		TLambdaNa:   tLambdaNa,
		DeltaTNa:    deltaTNa,
		DeltaTDotNa: deltaTDotNa,
		Hna:         hna,
		Ln:          ln,
		logLevel:    logLevel,
	}

	return &message
}

// String returns a text version of an odd almanac message.
func (message *Message) String() string {

	display := fmt.Sprintf("string %d: almanac second half, frequency number %d,\n",
		message.StringID, message.Hna)

	display += fmt.Sprintf("perigee %g rad, ascending node at %g s, period correction %g s\n",
		message.OmegaNa, message.TLambdaNa, message.DeltaTNa)

	if message.logLevel == slog.LevelDebug {
		display += fmt.Sprintf("period drift %g, l_n %d\n",
			message.DeltaTDotNa, message.Ln)
	}

	return display
}

// GetMessage extracts an odd almanac message from the 85-bit data block
// of a navigation string.
func GetMessage(block []byte, logLevel slog.Level) (*Message, error) {

	if len(block) < utils.DataLengthBytes {
		errorMessage := fmt.Sprintf("overrun - expected %d bytes in a navigation string, got %d",
			utils.DataLengthBytes, len(block))
		return nil, errors.New(errorMessage)
	}

	// Sanity check - the string number must be odd and in the almanac
	// range.
	stringID := fieldspec.StringID(block)
	if stringID < 7 || stringID > utils.MaxStringID || stringID%2 != 1 {
		em := fmt.Sprintf("expected an odd almanac string number (7-15) got %d",
			stringID)
		return nil, errors.New(em)
	}

	message := New(
		stringID,
		fieldOmega.Value(block),
		fieldTLambda.Value(block),
		fieldDeltaT.Value(block),
		fieldDeltaTDot.Value(block),
		fieldHna.Uint(block),
		fieldLn.Uint(block),
		logLevel,
	)
	return message, nil
}
