package type4

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-gnav/gnav/fieldspec"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// This package handles navigation strings of type 4 - the satellite
// clock correction tau_n, the age and accuracy indicators, the day
// number N_T and the satellite's slot number.
const expectedStringID = 4

var (
	fieldTauN      = field("tau_n")
	fieldDeltaTauN = field("delta_tau_n")
	fieldEn        = field("E_n")
	fieldP4        = field("P4")
	fieldFt        = field("F_T")
	fieldNt        = field("N_T")
	fieldN         = field("n")
	fieldM         = field("M")
)

func field(name string) *fieldspec.FieldSpec {
	f, err := fieldspec.Find(expectedStringID, name)
	if err != nil {
		panic(err)
	}
	return f
}

// Message contains a navigation string of type 4.
type Message struct {
	// TauN is the satellite clock bias relative to GLONASS time - sign
	// and magnitude, scaled 2^-30, in seconds.
	TauN float64 `json:"tau_n,omitempty"`

	// DeltaTauN is the time difference between the L2 and L1 signals
	// within the satellite - sign and magnitude, scaled 2^-30 seconds.
	DeltaTauN float64 `json:"delta_tau_n,omitempty"`

	// En - uint5 - the age of the immediate data, in days since upload.
	En uint `json:"e_n,omitempty"`

	// P4 - uint1 - set when fresh ephemeris data has been uploaded.
	P4 uint `json:"p4,omitempty"`

	// Ft - uint4 - the user range accuracy index at time t_b.
	Ft uint `json:"f_t,omitempty"`

	// Nt - uint11 - the day number within the current four-year
	// interval, counted from the 1st of January of the leap year.
	Nt uint `json:"n_t,omitempty"`

	// N - uint5 - the slot number of the transmitting satellite, 1-24.
	N uint `json:"n,omitempty"`

	// M - uint2 - the satellite type (1 means GLONASS-M).
	M uint `json:"m,omitempty"`

	// logLevel is a slog-style logging level.
	logLevel slog.Level
}

// New creates a new type 4 message.
func New(tauN, deltaTauN float64, en, p4, ft, nt, n, m uint,
	logLevel slog.Level) *Message {

	message := Message{
		TauN:      tauN,
		DeltaTauN: deltaTauN,
		En:        en,
		P4:        p4,
		Ft:        ft,
		Nt:        nt,
		N:         n,
		M:         m,
		logLevel:  logLevel,
	}

	return &message
}

// String returns a text version of a message type 4.
func (message *Message) String() string {

	display := fmt.Sprintf("string 4: slot %d, tau_n %g s, day number N_T %d,\n",
		message.N, message.TauN, message.Nt)

	if message.logLevel == slog.LevelDebug {
		display += fmt.Sprintf("delta_tau_n %g s, age E_n %d days, accuracy index F_T %d, P4 %d, type M %d\n",
			message.DeltaTauN, message.En, message.Ft, message.P4, message.M)
	}

	return display
}

// GetMessage extracts a type 4 message from the 85-bit data block of a
// navigation string.
func GetMessage(block []byte, logLevel slog.Level) (*Message, error) {

	if len(block) < utils.DataLengthBytes {
		errorMessage := fmt.Sprintf("overrun - expected %d bytes in a navigation string, got %d",
			utils.DataLengthBytes, len(block))
		return nil, errors.New(errorMessage)
	}

	stringID := fieldspec.StringID(block)
	if stringID != expectedStringID {
		em := fmt.Sprintf("expected string number %d got %d",
			expectedStringID, stringID)
		return nil, errors.New(em)
	}

	message := New(
		fieldTauN.Value(block),
		fieldDeltaTauN.Value(block),
		fieldEn.Uint(block),
		fieldP4.Uint(block),
		fieldFt.Uint(block),
		fieldNt.Uint(block),
		fieldN.Uint(block),
		fieldM.Uint(block),
		logLevel,
	)
	return message, nil
}
