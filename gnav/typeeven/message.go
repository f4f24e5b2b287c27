package typeeven

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-gnav/gnav/fieldspec"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// This package handles the even-numbered almanac strings (6, 8, 10, 12
// and 14), which all share one layout.  An even string carries the first
// half of an almanac entry: the slot n_A that the entry describes, its
// clock correction and the longitude, inclination correction and
// eccentricity of its orbit.  The second half arrives in the odd string
// that follows.

// referenceStringID is a string number with the even almanac layout,
// used to look up the field table.
const referenceStringID = 6

var (
	fieldCn      = field("C_n")
	fieldMna     = field("M_n_A")
	fieldNa      = field("n_A")
	fieldTauNa   = field("tau_n_A")
	fieldLambda  = field("lambda_n_A")
	fieldDeltaI  = field("delta_i_n_A")
	fieldEpsilon = field("epsilon_n_A")
)

func field(name string) *fieldspec.FieldSpec {
	f, err := fieldspec.Find(referenceStringID, name)
	if err != nil {
		panic(err)
	}
	return f
}

// Message contains an even-numbered almanac string.
type Message struct {
	// StringID is the string number, one of 6, 8, 10, 12 or 14.
	StringID uint `json:"string_id,omitempty"`

	// Cn - uint1 - health flag of the satellite in slot n_A: 0 means
	// non-operational.
	Cn uint `json:"c_n,omitempty"`

	// Mna - uint2 - the type of the satellite in slot n_A (1 means
	// GLONASS-M).
	Mna uint `json:"m_n_a,omitempty"`

	// Na - uint5 - the almanac slot this entry describes, 1-24.
	Na uint `json:"n_a,omitempty"`

	// TauNa is the coarse clock correction of the satellite in slot
	// n_A - sign and magnitude, scaled 2^-18, in seconds.
	TauNa float64 `json:"tau_n_a,omitempty"`

	// LambdaNa is the longitude of the first ascending node - sign and
	// magnitude, scaled 2^-20 semicircles, converted here to radians.
	LambdaNa float64 `json:"lambda_n_a,omitempty"`

	// DeltaINa is the correction to the nominal inclination - sign and
	// magnitude, scaled 2^-20 semicircles, converted here to radians.
	DeltaINa float64 `json:"delta_i_n_a,omitempty"`

	// EpsilonNa is the eccentricity of the orbit - unsigned, scaled
	// 2^-20, dimensionless.
	EpsilonNa float64 `json:"epsilon_n_a,omitempty"`

	// logLevel is a slog-style logging level.
	logLevel slog.Level
}

// New creates a new even almanac message.
func New(stringID, cn, mna, na uint,
	tauNa, lambdaNa, deltaINa, epsilonNa float64, logLevel slog.Level) *Message {

	message := Message{
		StringID:  stringID,
		Cn:        cn,
		Mna:       mna,
		Na:        na,
		TauNa:     tauNa,
		LambdaNa:  lambdaNa,
		DeltaINa:  deltaINa,
		EpsilonNa: epsilonNa,
		logLevel:  logLevel,
	}

	return &message
}

// String returns a text version of an even almanac message.
func (message *Message) String() string {

	display := fmt.Sprintf("string %d: almanac slot %d first half, health C_n %d,\n",
		message.StringID, message.Na, message.Cn)

	display += fmt.Sprintf("longitude %g rad, inclination correction %g rad, eccentricity %g\n",
		message.LambdaNa, message.DeltaINa, message.EpsilonNa)

	if message.logLevel == slog.LevelDebug {
		display += fmt.Sprintf("tau_n_A %g s, type M_n_A %d\n",
			message.TauNa, message.Mna)
	}

	return display
}

// GetMessage extracts an even almanac message from the 85-bit data
// block of a navigation string.
func GetMessage(block []byte, logLevel slog.Level) (*Message, error) {

	if len(block) < utils.DataLengthBytes {
		errorMessage := fmt.Sprintf("overrun - expected %d bytes in a navigation string, got %d",
			utils.DataLengthBytes, len(block))
		return nil, errors.New(errorMessage)
	}

	// Sanity check - the string number must be even and in the almanac
	// range.
	stringID := fieldspec.StringID(block)
	if stringID < 6 || stringID > utils.MaxStringID || stringID%2 != 0 {
		em := fmt.Sprintf("expected an even almanac string number (6-14) got %d",
			stringID)
		return nil, errors.New(em)
	}

	message := New(
		stringID,
		fieldCn.Uint(block),
		fieldMna.Uint(block),
		fieldNa.Uint(block),
		fieldTauNa.Value(block),
		fieldLambda.Value(block),
		fieldDeltaI.Value(block),
		fieldEpsilon.Value(block),
		logLevel,
	)
	return message, nil
}
