package type5

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-gnav/gnav/fieldspec"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// This package handles navigation strings of type 5 - the receiver-wide
// time state: the four-year interval number N_4, the almanac reference
// day N_A and the offsets between GLONASS time, UTC and GPS time.
const expectedStringID = 5

var (
	fieldNa     = field("N_A")
	fieldTauC   = field("tau_c")
	fieldN4     = field("N_4")
	fieldTauGPS = field("tau_gps")
	fieldLn     = field("l_n")
)

func field(name string) *fieldspec.FieldSpec {
	f, err := fieldspec.Find(expectedStringID, name)
	if err != nil {
		panic(err)
	}
	return f
}

// Message contains a navigation string of type 5.
type Message struct {
	// Na - uint11 - the day number within the four-year interval to
	// which the almanac data is referenced.
	Na uint `json:"n_a,omitempty"`

	// TauC is the offset of GLONASS time from UTC(SU) - two's
	// complement, scaled 2^-31, in seconds.
	TauC float64 `json:"tau_c,omitempty"`

	// N4 - uint5 - the number of the current four-year interval,
	// counted from 1996.
	N4 uint `json:"n_4,omitempty"`

	// TauGPS is the correction from GPS time to GLONASS time - two's
	// complement, scaled 2^-30, in seconds.
	TauGPS float64 `json:"tau_gps,omitempty"`

	// Ln - uint1 - health flag: 1 means malfunction.
	Ln uint `json:"l_n,omitempty"`

	// logLevel is a slog-style logging level.
	logLevel slog.Level
}

// New creates a new type 5 message.
func New(na uint, tauC float64, n4 uint, tauGPS float64, ln uint,
	logLevel slog.Level) *Message {

	message := Message{
		Na:       na,
		TauC:     tauC,
		N4:       n4,
		TauGPS:   tauGPS,
		Ln:       ln,
		logLevel: logLevel,
	}

	return &message
}

// String returns a text version of a message type 5.
func (message *Message) String() string {

	display := fmt.Sprintf("string 5: four-year interval N_4 %d, almanac day N_A %d,\n",
		message.N4, message.Na)

	display += fmt.Sprintf("tau_c %g s, tau_GPS %g s\n",
		message.TauC, message.TauGPS)

	if message.logLevel == slog.LevelDebug {
		display += fmt.Sprintf("l_n %d\n", message.Ln)
	}

	return display
}

// GetMessage extracts a type 5 message from the 85-bit data block of a
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
		fieldNa.Uint(block),
		fieldTauC.Value(block),
		fieldN4.Uint(block),
		fieldTauGPS.Value(block),
		fieldLn.Uint(block),
		logLevel,
	)
	return message, nil
}
