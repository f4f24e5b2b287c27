package type3

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-gnav/gnav/fieldspec"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// This package handles navigation strings of type 3 - the Z components
// of the satellite's position, velocity and acceleration, plus the
// relative frequency bias gamma_n.
const expectedStringID = 3

var (
	fieldP3      = field("P3")
	fieldGamma   = field("gamma_n")
	fieldP       = field("P")
	fieldLn      = field("l_n")
	fieldZDot    = field("z_n_dot")
	fieldZDotDot = field("z_n_dot_dot")
	fieldZ       = field("z_n")
)

func field(name string) *fieldspec.FieldSpec {
	f, err := fieldspec.Find(expectedStringID, name)
	if err != nil {
		panic(err)
	}
	return f
}

// Message contains a navigation string of type 3.
type Message struct {
	// P3 - uint1 - number of almanac satellites in the current frame
	// (0 means four, 1 means five).
	P3 uint `json:"p3,omitempty"`

	// GammaN is the relative deviation of the satellite's carrier
	// frequency from nominal - sign and magnitude, scaled 2^-40,
	// dimensionless.
	GammaN float64 `json:"gamma_n,omitempty"`

	// P - uint2 - the satellite's time control mode.
	P uint `json:"p,omitempty"`

	// Ln - uint1 - health flag: 1 means malfunction.
	Ln uint `json:"l_n,omitempty"`

	// VelocityZ, AccelerationZ and PositionZ are the Z components of
	// the satellite's velocity, acceleration and position in PZ-90
	// coordinates, in m/s, m/s/s and metres.
	VelocityZ     float64 `json:"z_n_dot,omitempty"`
	AccelerationZ float64 `json:"z_n_dot_dot,omitempty"`
	PositionZ     float64 `json:"z_n,omitempty"`

	// logLevel is a slog-style logging level.
	logLevel slog.Level
}

// New creates a new type 3 message.
func New(p3 uint, gammaN float64, p, ln uint,
	velocityZ, accelerationZ, positionZ float64, logLevel slog.Level) *Message {

	message := Message{
		P3:            p3,
		GammaN:        gammaN,
		P:             p,
		Ln:            ln,
		VelocityZ:     velocityZ,
		AccelerationZ: accelerationZ,
		PositionZ:     positionZ,
		logLevel:      logLevel,
	}

	return &message
}

// String returns a text version of a message type 3.
func (message *Message) String() string {

	display := fmt.Sprintf("string 3: gamma_n %g, l_n %d,\n",
		message.GammaN, message.Ln)

	display += fmt.Sprintf("Z position %.1f m, velocity %.3f m/s, acceleration %g m/s/s\n",
		message.PositionZ, message.VelocityZ, message.AccelerationZ)

	if message.logLevel == slog.LevelDebug {
		display += fmt.Sprintf("P3 %d, P %d\n", message.P3, message.P)
	}

	return display
}

// GetMessage extracts a type 3 message from the 85-bit data block of a
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
		fieldP3.Uint(block),
		fieldGamma.Value(block),
		fieldP.Uint(block),
		fieldLn.Uint(block),
		fieldZDot.Value(block),
		fieldZDotDot.Value(block),
		fieldZ.Value(block),
		logLevel,
	)
	return message, nil
}
