package type2

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-gnav/gnav/fieldspec"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// This package handles navigation strings of type 2 - the Y components
// of the satellite's position, velocity and acceleration, plus the
// health flag B_n and the ephemeris reference time t_b.
const expectedStringID = 2

var (
	fieldBn      = field("B_n")
	fieldP2      = field("P2")
	fieldTb      = field("t_b")
	fieldYDot    = field("y_n_dot")
	fieldYDotDot = field("y_n_dot_dot")
	fieldY       = field("y_n")
)

func field(name string) *fieldspec.FieldSpec {
	f, err := fieldspec.Find(expectedStringID, name)
	if err != nil {
		panic(err)
	}
	return f
}

// Message contains a navigation string of type 2.
type Message struct {
	// Bn - uint3 - the satellite health flag.  Only the most
	// significant bit matters: 1 means unhealthy.
	Bn uint `json:"b_n,omitempty"`

	// P2 - uint1 - flag of oddness or evenness of the value of t_b.
	P2 uint `json:"p2,omitempty"`

	// Tb - uint7 - index of the ephemeris reference time within the
	// current day (Moscow time), in units of 15 minutes.
	Tb uint `json:"t_b,omitempty"`

	// VelocityY, AccelerationY and PositionY are the Y components of
	// the satellite's velocity, acceleration and position in PZ-90
	// coordinates, in m/s, m/s/s and metres.
	VelocityY     float64 `json:"y_n_dot,omitempty"`
	AccelerationY float64 `json:"y_n_dot_dot,omitempty"`
	PositionY     float64 `json:"y_n,omitempty"`

	// logLevel is a slog-style logging level.
	logLevel slog.Level
}

// New creates a new type 2 message.
func New(bn, p2, tb uint,
	velocityY, accelerationY, positionY float64, logLevel slog.Level) *Message {

	message := Message{
		Bn:            bn,
		P2:            p2,
		Tb:            tb,
		VelocityY:     velocityY,
		AccelerationY: accelerationY,
		PositionY:     positionY,
		logLevel:      logLevel,
	}

	return &message
}

// TbSeconds returns t_b as a number of seconds since the start of the
// current day (Moscow time).
func (message *Message) TbSeconds() uint {
	return message.Tb * 900
}

// Unhealthy returns true if the health flag marks the satellite as
// unusable.
func (message *Message) Unhealthy() bool {
	return message.Bn&4 != 0
}

// String returns a text version of a message type 2.
func (message *Message) String() string {

	display := fmt.Sprintf("string 2: t_b %d (%d sec of day), B_n %d,\n",
		message.Tb, message.TbSeconds(), message.Bn)

	display += fmt.Sprintf("Y position %.1f m, velocity %.3f m/s, acceleration %g m/s/s\n",
		message.PositionY, message.VelocityY, message.AccelerationY)

	if message.logLevel == slog.LevelDebug {
		display += fmt.Sprintf("P2 %d\n", message.P2)
	}

	return display
}

// GetMessage extracts a type 2 message from the 85-bit data block of a
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
		fieldBn.Uint(block),
		fieldP2.Uint(block),
		fieldTb.Uint(block),
		fieldYDot.Value(block),
		fieldYDotDot.Value(block),
		fieldY.Value(block),
		logLevel,
	)
	return message, nil
}
