package type1

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-gnav/gnav/fieldspec"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// This package handles navigation strings of type 1 - the X components
// of the satellite's position, velocity and acceleration, plus the time
// of frame start t_k.
const expectedStringID = 1

// The fields of the string, from the layout table.
var (
	fieldP1         = field("P1")
	fieldTkHours    = field("t_k_hours")
	fieldTkMinutes  = field("t_k_minutes")
	fieldTkInterval = field("t_k_interval")
	fieldXDot       = field("x_n_dot")
	fieldXDotDot    = field("x_n_dot_dot")
	fieldX          = field("x_n")
)

func field(name string) *fieldspec.FieldSpec {
	f, err := fieldspec.Find(expectedStringID, name)
	if err != nil {
		panic(err)
	}
	return f
}

// Message contains a navigation string of type 1.
type Message struct {
	// P1 - uint2 - the time interval between adjacent values of t_b.
	P1 uint `json:"p1,omitempty"`

	// TkHours, TkMinutes and TkInterval make up t_k, the time of the
	// start of the frame within the current day: hours (uint5), minutes
	// (uint6) and a thirty-second unit (uint1).
	TkHours    uint `json:"t_k_hours,omitempty"`
	TkMinutes  uint `json:"t_k_minutes,omitempty"`
	TkInterval uint `json:"t_k_interval,omitempty"`

	// VelocityX is the X component of the satellite's velocity in
	// PZ-90 coordinates - sign and magnitude, scaled 2^-20 km/s,
	// converted here to m/s.
	VelocityX float64 `json:"x_n_dot,omitempty"`

	// AccelerationX is the X component of the satellite's acceleration
	// (due to solar and lunar perturbation) - sign and magnitude,
	// scaled 2^-30 km/s/s, converted here to m/s/s.
	AccelerationX float64 `json:"x_n_dot_dot,omitempty"`

	// PositionX is the X component of the satellite's position - sign
	// and magnitude, scaled 2^-11 km, converted here to metres.
	PositionX float64 `json:"x_n,omitempty"`

	// logLevel is a slog-style logging level.
	logLevel slog.Level
}

// New creates a new type 1 message.
func New(p1, tkHours, tkMinutes, tkInterval uint,
	velocityX, accelerationX, positionX float64, logLevel slog.Level) *Message {

	message := Message{
		P1:            p1,
		TkHours:       tkHours,
		TkMinutes:     tkMinutes,
		TkInterval:    tkInterval,
		VelocityX:     velocityX,
		AccelerationX: accelerationX,
		PositionX:     positionX,
		logLevel:      logLevel,
	}

	return &message
}

// Tk returns t_k as a number of seconds since the start of the current
// day (Moscow time).
func (message *Message) Tk() uint {
	return message.TkHours*3600 + message.TkMinutes*60 + message.TkInterval*30
}

// String returns a text version of a message type 1.
func (message *Message) String() string {

	display := fmt.Sprintf("string 1: t_k %02d:%02d:%02d (%d sec of day),\n",
		message.TkHours, message.TkMinutes, message.TkInterval*30,
		message.Tk())

	display += fmt.Sprintf("X position %.1f m, velocity %.3f m/s, acceleration %g m/s/s\n",
		message.PositionX, message.VelocityX, message.AccelerationX)

	if message.logLevel == slog.LevelDebug {
		display += fmt.Sprintf("P1 %d\n", message.P1)
	}

	return display
}

// GetMessage extracts a type 1 message from the 85-bit data block of a
// navigation string.
func GetMessage(block []byte, logLevel slog.Level) (*Message, error) {

	if len(block) < utils.DataLengthBytes {
		errorMessage := fmt.Sprintf("overrun - expected %d bytes in a navigation string, got %d",
			utils.DataLengthBytes, len(block))
		return nil, errors.New(errorMessage)
	}

	// Sanity check.
	stringID := fieldspec.StringID(block)
	if stringID != expectedStringID {
		em := fmt.Sprintf("expected string number %d got %d",
			expectedStringID, stringID)
		return nil, errors.New(em)
	}

	message := New(
		fieldP1.Uint(block),
		fieldTkHours.Uint(block),
		fieldTkMinutes.Uint(block),
		fieldTkInterval.Uint(block),
		fieldXDot.Value(block),
		fieldXDotDot.Value(block),
		fieldX.Value(block),
		logLevel,
	)
	return message, nil
}
