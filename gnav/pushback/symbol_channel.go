// The pushback package provides a channel of demodulated navigation bits
// with pushback, for use by the frame synchronizer.
package pushback

import (
	"errors"
	"time"
)

// Symbol is one demodulated navigation bit from the tracking front end,
// tagged with the receiver-local time at which it was demodulated.
type Symbol struct {
	// Bit is 0 or 1.
	Bit byte
	// Time is the receiver-local timestamp of the bit.
	Time time.Time
}

type symbolChan chan Symbol

// SymbolChannel is a channel of symbols with pushback.
type SymbolChannel struct {
	// pushBackBuffer contains any symbols that have been pushed back.
	pushBackBuffer []Symbol
	// This is the source of the symbols.
	symbolChan
}

// New creates a SymbolChannel containing the given channel.
// ch must be a *buffered* channel.
func New(ch chan Symbol) *SymbolChannel {
	sc := SymbolChannel{symbolChan: ch}
	return &sc
}

// Close closes the channel.
func (sc *SymbolChannel) Close() {
	close(sc.symbolChan)
}

// get reads the next symbol from the channel (or returns an error),
// ignoring any pushed back symbols.
func (sc *SymbolChannel) get() (Symbol, error) {
	if sc.symbolChan == nil {
		return Symbol{}, errors.New("channel is nil")
	}
	s, more := <-sc.symbolChan
	if !more {
		return Symbol{}, errors.New("done")
	}
	return s, nil
}

// GetNextSymbol gets the next symbol from the channel or, if the channel
// has been closed, returns an error.  If symbols have been pushed back,
// it returns the first of them instead.
func (sc *SymbolChannel) GetNextSymbol() (Symbol, error) {
	// Check if there is anything in the push back buffer.  If so, remove
	// the first symbol and return it.
	if len(sc.pushBackBuffer) > 0 {
		s := sc.pushBackBuffer[0]
		sc.pushBackBuffer = sc.pushBackBuffer[1:]
		return s, nil
	}

	// There is nothing in the pushback buffer.  Fetch a symbol from the
	// channel.
	return sc.get()
}

// PushBack pushes back a symbol - the next call of GetNextSymbol will
// read from the buffer rather than the channel.
func (sc *SymbolChannel) PushBack(s Symbol) {
	if sc.pushBackBuffer == nil {
		// First call - create the buffer.
		sc.pushBackBuffer = make([]Symbol, 0)
	}
	sc.pushBackBuffer = append(sc.pushBackBuffer, s)
}
