// The framesync package finds string boundaries in the stream of
// demodulated bits from a satellite's tracking channel.  GLONASS strings
// are not delimited by a preamble in the way that GPS subframes are;
// instead every 115-bit string starts with a fixed 30-bit time mark, and
// the synchronizer has to correlate a sliding window of the incoming
// bits against that pattern to find the boundaries.
//
// The carrier phase sign is unknown when tracking starts, so the whole
// bit stream may arrive inverted.  The synchronizer correlates against
// the time mark and its complement, remembers which one matched and
// un-inverts the data bits before handing them on.
//
// The synchronizer is a state machine with three states.  In the
// Searching state it slides the window one bit at a time until the
// correlation exceeds the agreement threshold.  In the Synced state it
// expects a time mark at every 115-bit boundary and consumes the 85 data
// bits that follow each one.  A single failed time mark doesn't drop
// sync - the string is discarded and the next boundary is tried - but a
// second consecutive failure moves the machine to the Lost state, from
// which it re-enters Searching.
package framesync

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/goblimey/go-gnav/gnav/pushback"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// DefaultThreshold is the number of the 30 time-mark bits that must
// match for a correlation to succeed.  Requiring all 30 would make sync
// too fragile on a noisy channel; 28 allows two bit errors in the mark.
const DefaultThreshold = 28

// State is the state of the synchronizer.
type State int

const (
	// Searching - sliding the correlation window bit by bit, looking
	// for a time mark.
	Searching State = iota
	// Synced - locked to the string boundaries, consuming whole strings.
	Synced
	// Lost - two consecutive time marks failed to correlate.  The state
	// is transient: the next call re-enters Searching.
	Lost
)

// String returns the state name, for log messages.
func (state State) String() string {
	switch state {
	case Searching:
		return "searching"
	case Synced:
		return "synced"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("state %d", int(state))
	}
}

// RawString is one synchronized navigation string - the 85 data bits
// that followed a time mark, with the polarity inversion already undone.
type RawString struct {
	// Data contains the 85 data bits packed most significant bit first,
	// with three zero padding bits at the end of the last byte.
	Data [utils.DataLengthBytes]byte
	// Start is the receiver-local timestamp of the first bit of the
	// string's time mark.
	Start time.Time
	// Inverted is true if the incoming bit stream was inverted (the
	// data bits in Data have been corrected).
	Inverted bool
	// Resync is true if this is the first string since the synchronizer
	// (re)gained sync.  Any partially assembled frame from before the
	// resync is invalid, because the string order context has been lost.
	Resync bool
}

// Synchronizer finds the string boundaries in one satellite's bit
// stream.  It's driven by GetNextRawString and is not safe for use by
// more than one goroutine.
type Synchronizer struct {
	// source supplies the demodulated bits.
	source *pushback.SymbolChannel

	// threshold is the number of time-mark bits that must match.
	threshold uint

	// state is the current state of the machine.
	state State

	// inverted records the polarity inferred when sync was gained.
	inverted bool

	// missedMark is true if the last expected time mark failed to
	// correlate.  One miss is tolerated; a second drops sync.
	missedMark bool

	// window holds the last 30 bits received while searching, the most
	// recent bit in the least significant position.
	window uint32

	// bitsInWindow is the fill level of the window, at most 30.
	bitsInWindow uint

	// timeRing holds the timestamps of the bits in the window.  next is
	// the slot that the next bit's timestamp will occupy, which is also
	// the slot holding the oldest timestamp once the ring is full.
	timeRing [utils.TimeMarkLengthBits]time.Time
	next     uint

	// syncLosses counts transitions into the Lost state.
	syncLosses uint
}

// New creates a Synchronizer reading from the given symbol channel.
func New(source *pushback.SymbolChannel) *Synchronizer {
	synchronizer := Synchronizer{
		source:    source,
		threshold: DefaultThreshold,
		state:     Searching,
	}
	return &synchronizer
}

// SetThreshold adjusts the correlation threshold - mainly for testing,
// but a receiver working a very noisy channel might lower it.
func (synchronizer *Synchronizer) SetThreshold(threshold uint) {
	synchronizer.threshold = threshold
}

// GetState returns the current state of the machine.
func (synchronizer *Synchronizer) GetState() State {
	return synchronizer.state
}

// SyncLosses returns the number of times the machine has dropped from
// Synced to Lost since it was created.
func (synchronizer *Synchronizer) SyncLosses() uint {
	return synchronizer.syncLosses
}

// GetNextRawString reads bits from the source until it has assembled the
// next complete navigation string, and returns it.  The Resync flag of
// the result is set if the synchronizer had to (re)gain sync to produce
// it.  When the source is exhausted it returns an error.
func (synchronizer *Synchronizer) GetNextRawString() (*RawString, error) {
	for {
		switch synchronizer.state {
		case Lost:
			// Transient - count the loss and start searching again.  The
			// bits that failed to correlate as a time mark were pushed
			// back, so the search slides through them: a boundary at
			// some other offset inside them is still found.
			synchronizer.syncLosses++
			synchronizer.state = Searching

		case Searching:
			rawString, err := synchronizer.search()
			if err != nil {
				return nil, err
			}
			if rawString != nil {
				return rawString, nil
			}
			// A corrupted data block just after sync - go round again.

		case Synced:
			rawString, err := synchronizer.nextSyncedString()
			if err != nil {
				return nil, err
			}
			if rawString != nil {
				return rawString, nil
			}
			// A single missed time mark, or sync was lost - go round.
		}
	}
}

// search slides the correlation window one bit at a time until a time
// mark is found, then consumes the data block that follows it.  It
// returns nil if the machine should go round its loop again.
func (synchronizer *Synchronizer) search() (*RawString, error) {
	for {
		symbol, err := synchronizer.source.GetNextSymbol()
		if err != nil {
			return nil, err
		}
		synchronizer.push(symbol)
		if synchronizer.bitsInWindow < utils.TimeMarkLengthBits {
			continue
		}

		match, inverted := synchronizer.correlate()
		if !match {
			continue
		}

		// Found a time mark.  Lock to this boundary.
		synchronizer.state = Synced
		synchronizer.inverted = inverted
		synchronizer.missedMark = false
		start := synchronizer.oldestTime()
		synchronizer.reset()

		data, err := synchronizer.readDataBlock()
		if err != nil {
			return nil, err
		}
		rawString := RawString{
			Data:     data,
			Start:    start,
			Inverted: inverted,
			Resync:   true,
		}
		return &rawString, nil
	}
}

// nextSyncedString expects a time mark at the current position, then
// consumes the data block that follows it.  A nil result with a nil
// error means the string was discarded (a missed mark or a sync loss)
// and the machine should go round its loop again.
func (synchronizer *Synchronizer) nextSyncedString() (*RawString, error) {
	// Read the next 30 bits as the expected time mark.
	var markSymbols [utils.TimeMarkLengthBits]pushback.Symbol
	for i := range markSymbols {
		symbol, err := synchronizer.source.GetNextSymbol()
		if err != nil {
			return nil, err
		}
		markSymbols[i] = symbol
		synchronizer.push(symbol)
	}
	start := markSymbols[0].Time

	match, inverted := synchronizer.correlate()
	synchronizer.reset()

	if !match || inverted != synchronizer.inverted {
		if synchronizer.missedMark {
			// Second consecutive failure - sync is gone.  Push the mark
			// bits back: a string boundary may begin inside them.
			for _, symbol := range markSymbols {
				synchronizer.source.PushBack(symbol)
			}
			synchronizer.state = Lost
			return nil, nil
		}
		// First failure.  The string is corrupted but the boundary may
		// still be right, so consume the data block and try the next
		// time mark.
		synchronizer.missedMark = true
		if _, err := synchronizer.readDataBlock(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	synchronizer.missedMark = false
	data, err := synchronizer.readDataBlock()
	if err != nil {
		return nil, err
	}
	rawString := RawString{
		Data:     data,
		Start:    start,
		Inverted: synchronizer.inverted,
	}
	return &rawString, nil
}

// readDataBlock consumes the 85 data bits that follow a time mark and
// packs them into bytes, most significant bit first, undoing the
// polarity inversion.
func (synchronizer *Synchronizer) readDataBlock() ([utils.DataLengthBytes]byte, error) {
	var data [utils.DataLengthBytes]byte
	for i := uint(0); i < utils.DataLengthBits; i++ {
		symbol, err := synchronizer.source.GetNextSymbol()
		if err != nil {
			return data, err
		}
		bit := symbol.Bit & 1
		if synchronizer.inverted {
			bit ^= 1
		}
		if bit == 1 {
			data[i/8] |= 1 << (7 - i%8)
		}
	}
	return data, nil
}

// push shifts a bit into the correlation window and its timestamp into
// the time ring.
func (synchronizer *Synchronizer) push(symbol pushback.Symbol) {
	synchronizer.window =
		(synchronizer.window<<1 | uint32(symbol.Bit&1)) & utils.TimeMarkMask
	if synchronizer.bitsInWindow < utils.TimeMarkLengthBits {
		synchronizer.bitsInWindow++
	}
	synchronizer.timeRing[synchronizer.next] = symbol.Time
	synchronizer.next = (synchronizer.next + 1) % utils.TimeMarkLengthBits
}

// oldestTime returns the timestamp of the first bit in the window.
func (synchronizer *Synchronizer) oldestTime() time.Time {
	return synchronizer.timeRing[synchronizer.next]
}

// reset empties the correlation window.
func (synchronizer *Synchronizer) reset() {
	synchronizer.window = 0
	synchronizer.bitsInWindow = 0
	synchronizer.next = 0
}

// correlate compares the window against the time mark and against its
// complement, and reports whether either meets the threshold, and if so
// whether it was the complement (an inverted bit stream).
func (synchronizer *Synchronizer) correlate() (match bool, inverted bool) {
	disagreements := uint(bits.OnesCount32(
		(synchronizer.window ^ utils.TimeMark) & utils.TimeMarkMask))
	if utils.TimeMarkLengthBits-disagreements >= synchronizer.threshold {
		return true, false
	}
	if disagreements >= synchronizer.threshold {
		return true, true
	}
	return false, false
}
