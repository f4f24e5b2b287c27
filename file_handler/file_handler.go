package filehandler

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dolmen-go/contextio"

	gnav "github.com/goblimey/go-gnav/gnav/handler"
	"github.com/goblimey/go-gnav/gnav/gnavtime"
	"github.com/goblimey/go-gnav/gnav/pushback"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// Handler provides code to handle a file containing a recorded navigation
// bit stream, packed eight bits to a byte, most significant bit first.
// The file may be a completed capture or a serial connection that a
// tracking front end is still writing to.  (A completed capture is read
// to the end and the handler dies.  For a live connection the handler
// retries on EOF for a while, because EOF can just mean that no bits
// have arrived yet.)
type Handler struct {
	Satellite          uint            // The slot number of the satellite being tracked.
	TimeStore          *gnavtime.Store // The shared time state.
	GNAVHandler        *gnav.Handler   // Handles the navigation strings ...
	EventChan          chan gnav.Event // ... and issues decoded events on this channel.
	RetryIntervalOnEOF time.Duration   // The time to wait between retries on EOF.
	EOFTimeout         time.Duration   // Give up retrying after this time has elapsed.
	LogLevel           slog.Level      // Controls the verbosity of event display.
}

// New creates a handler.
func New(satellite uint, timeStore *gnavtime.Store, eventChan chan gnav.Event,
	retryIntervalOnEOF, eofTimeout time.Duration, logLevel slog.Level) *Handler {

	handler := Handler{
		Satellite:          satellite,
		TimeStore:          timeStore,
		EventChan:          eventChan,
		RetryIntervalOnEOF: retryIntervalOnEOF,
		EOFTimeout:         eofTimeout,
		LogLevel:           logLevel,
	}
	return &handler
}

// Handle reads the file and sends the contents to a GNAV handler, which
// synchronizes on the time marks, decodes the strings and sends the
// resulting events to the event channel.  The bits were received at a
// fixed rate, so each one is given a receiver time synthesized from the
// given start time.  If there is a read error (typically EOF), it's
// returned.
func (handler *Handler) Handle(ctx context.Context, startTime time.Time, reader *bufio.Reader) error {

	// An EOF on a read is not necessarily fatal.  It can just mean that there
	// are no bits to read just now, but there may be some in the future.  If
	// the EOFTimeout is zero, we return immediately on EOF.  If it's set, then
	// we retry reads for that duration and then return the error if the
	// timeout elapses.  On any other read error we stop immediately.
	//
	// If the reader is connected to a completed capture file, the caller
	// should supply a zero timeout value.  Handle will then process the file
	// and die.
	//
	// If the reader is connected to a serial line fed by a live front end,
	// the bytes should come in indefinitely at just over six per second.  If
	// the timeout is set to a small number of seconds then it will only
	// expire if the host machine loses its connection to the device, so the
	// handler may run for days or weeks.  When a read timeout does expire,
	// the handler closes its symbol channel, the GNAV handler closes the
	// event channel in response and Handle returns.  (If events are consumed
	// in a goroutine, the closing channel signals to the consumer that the
	// handler has stopped.)  The caller should attempt to reopen the
	// connection to the device, create a new handler and continue.
	//
	// If the timeout is too short then we may return too early, part way
	// through a navigation string.  The synchronizer in the next handler
	// treats the gap as a sync loss and recovers at the next time mark.

	// timeOfFirstEOF is set when the read has returned EOF one or more times
	// in a row.  It's the time that we saw the first of a stream of EOFs.
	// If the last read was successful, the value is left as nil.
	//
	var timeOfFirstEOF *time.Time

	symbolChan := make(chan pushback.Symbol)
	// Ensure that the symbol channel is closed on return.
	defer close(symbolChan)

	// Set up a GNAV handler connected to the symbol and event channels
	// and start it running.
	handler.GNAVHandler = gnav.New(handler.Satellite, handler.TimeStore, handler.LogLevel)
	go handler.GNAVHandler.HandleSymbols(symbolChan, handler.EventChan)

	// Respond to the context - a cancellation stops the next read.
	in := contextio.NewReader(ctx, reader)

	// bitTime advances by one bit period per symbol sent.
	bitTime := startTime

	// Read the file and send the bits to the symbol channel.
	for {
		buf := make([]byte, 1)
		n, err := in.Read(buf)
		if err != nil {
			// Error of some kind, probably EOF.
			if err != io.EOF {
				// Some other kind of file handling error, including a
				// cancelled context.
				return err
			}

			// EOF.
			if handler.EOFTimeout == 0 {
				// No timeout so don't retry.
				return err
			}

			// EOF may really mean end of file or just that there
			// are currently no bits to read.
			// Retry until the timeout elapses and then return.
			if timeOfFirstEOF == nil {
				// The last read was successful, this one produced EOF.
				// Set up the timeout, pause and try again.
				t := time.Now()
				timeOfFirstEOF = &t
				time.Sleep(handler.RetryIntervalOnEOF)
				continue
			}

			// If we get to here, we've seen EOF this time and last time too.
			now := time.Now()
			if now.Sub(*timeOfFirstEOF) > handler.EOFTimeout {
				// The timeout has elapsed.  Give up.
				return err
			}

			// The timeout has not elapsed yet.  Pause and try again.
			time.Sleep(handler.RetryIntervalOnEOF)
		}

		if n > 0 {
			// We have read a byte carrying eight bits, first-received
			// at the top.  Reset the timeout mechanism and send the bits
			// to the channel.
			timeOfFirstEOF = nil
			for shift := 7; shift >= 0; shift-- {
				symbol := pushback.Symbol{
					Bit:  (buf[0] >> shift) & 1,
					Time: bitTime,
				}
				symbolChan <- symbol
				bitTime = bitTime.Add(utils.BitDuration)
			}
		}
	}
}
