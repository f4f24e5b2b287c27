package handler

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/goblimey/go-gnav/gnav/assembler"
	"github.com/goblimey/go-gnav/gnav/fieldspec"
	"github.com/goblimey/go-gnav/gnav/framesync"
	"github.com/goblimey/go-gnav/gnav/gnavtime"
	"github.com/goblimey/go-gnav/gnav/hamming"
	"github.com/goblimey/go-gnav/gnav/pushback"
	"github.com/goblimey/go-gnav/gnav/type1"
	"github.com/goblimey/go-gnav/gnav/type2"
	"github.com/goblimey/go-gnav/gnav/type3"
	"github.com/goblimey/go-gnav/gnav/type4"
	"github.com/goblimey/go-gnav/gnav/type5"
	"github.com/goblimey/go-gnav/gnav/typeeven"
	"github.com/goblimey/go-gnav/gnav/typeodd"
	"github.com/goblimey/go-gnav/gnav/utils"

	"github.com/prometheus/client_golang/prometheus"
)

// The handler package contains logic to read and decode the GLONASS L1
// C/A navigation message.  See the README for this repository for a
// description of the message structure.
//
//     handler := handler.New(3, timeStore, logLevel)
//
// creates a handler for the tracking channel following the satellite in
// slot 3.  Given a channel of demodulated bits from that satellite, the
// handler finds the string boundaries, validates each string's check
// bits, decodes the fields and assembles them into complete records:
//
//     go handler.HandleSymbols(ch_in, ch_out)
//
// The output channel carries three kinds of event: EphemerisReady once
// per fully decoded frame (nominally every 30 seconds while tracking),
// AlmanacReady once per completed even/odd almanac pair, and TimeUpdate
// once per decoded string 5.  Corrupted or unrecognized strings produce
// no events - they are dropped, counted and the handler waits for the
// satellite to repeat the data in a later cycle.  Nothing a satellite
// transmits can make its handler stop or disturb the other satellites'
// handlers.
//
// For an example of usage, see the gnavdisplay tool in this repository.

// Prometheus counters, labelled by satellite slot.  The decoder absorbs
// all protocol failures silently, so these counters are the only way to
// see how a channel is behaving.
var (
	stringsDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnav_strings_decoded_total",
			Help: "Navigation strings that passed the check bits and were decoded.",
		},
		[]string{"satellite"},
	)
	checksumFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnav_checksum_failures_total",
			Help: "Navigation strings dropped because the check bits failed.",
		},
		[]string{"satellite"},
	)
	syncLosses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnav_sync_losses_total",
			Help: "Times the synchronizer lost lock on the string boundaries.",
		},
		[]string{"satellite"},
	)
	unknownStringIDs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnav_unknown_string_ids_total",
			Help: "Navigation strings dropped because the string number was not recognized.",
		},
		[]string{"satellite"},
	)
	assemblyRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnav_assembly_restarts_total",
			Help: "Partial records discarded without completing.",
		},
		[]string{"satellite"},
	)
)

func init() {
	prometheus.MustRegister(stringsDecoded)
	prometheus.MustRegister(checksumFailures)
	prometheus.MustRegister(syncLosses)
	prometheus.MustRegister(unknownStringIDs)
	prometheus.MustRegister(assemblyRestarts)
}

// Event is one decoded navigation record, sent to the consumer (in a
// complete receiver, the position/velocity/time solver).
type Event interface {
	// Satellite returns the slot number of the satellite whose tracking
	// channel produced the event.
	Satellite() uint
	// String returns a readable version of the event.
	String() string
}

// EphemerisReady carries the committed ephemeris from one fully decoded
// frame.
type EphemerisReady struct {
	// SatelliteID is the slot number of the tracking channel.
	SatelliteID uint
	// Ephemeris is the committed record.
	Ephemeris assembler.Ephemeris
	// Timestamp is the receiver-local time of the start of the frame.
	Timestamp time.Time
	// Resolved is the ephemeris reference time t_b as absolute UTC, if
	// the receiver's time state was known when the frame completed.
	// ResolvedKnown says whether it was.
	Resolved      time.Time
	ResolvedKnown bool
}

// Satellite returns the slot number of the tracking channel.
func (event *EphemerisReady) Satellite() uint { return event.SatelliteID }

// String returns a readable version of the event.
func (event *EphemerisReady) String() string {
	display := fmt.Sprintf("ephemeris ready: satellite %d, t_b %d sec of day",
		event.SatelliteID, event.Ephemeris.TbSeconds())
	if event.ResolvedKnown {
		display += fmt.Sprintf(" (%s)", event.Resolved.Format(utils.DateLayout))
	}
	display += fmt.Sprintf(",\nposition (%.1f, %.1f, %.1f) m, velocity (%.3f, %.3f, %.3f) m/s,\n",
		event.Ephemeris.Position[0], event.Ephemeris.Position[1],
		event.Ephemeris.Position[2],
		event.Ephemeris.Velocity[0], event.Ephemeris.Velocity[1],
		event.Ephemeris.Velocity[2])
	display += fmt.Sprintf("clock bias %g s, frequency bias %g\n",
		event.Ephemeris.TauN, event.Ephemeris.GammaN)
	return display
}

// AlmanacReady carries the committed almanac entry from one completed
// even/odd string pair.
type AlmanacReady struct {
	// SatelliteID is the slot number of the tracking channel that
	// transmitted the almanac strings (not the slot they describe).
	SatelliteID uint
	// Entry is the committed record.  Entry.Slot is the almanac slot
	// n_A that the entry describes.
	Entry assembler.AlmanacEntry
	// Timestamp is the receiver-local time of the even string.
	Timestamp time.Time
}

// Satellite returns the slot number of the tracking channel.
func (event *AlmanacReady) Satellite() uint { return event.SatelliteID }

// String returns a readable version of the event.
func (event *AlmanacReady) String() string {
	return fmt.Sprintf("almanac ready: satellite %d, slot %d, health C_n %d, frequency number %d,\nlongitude %g rad, eccentricity %g\n",
		event.SatelliteID, event.Entry.Slot, event.Entry.Cn, event.Entry.Hna,
		event.Entry.LambdaNa, event.Entry.EpsilonNa)
}

// TimeUpdate carries the receiver-wide time state from one decoded
// string 5.
type TimeUpdate struct {
	// SatelliteID is the slot number of the tracking channel.
	SatelliteID uint
	// State is the newly published time state.
	State gnavtime.State
	// Timestamp is the receiver-local time of the string.
	Timestamp time.Time
}

// Satellite returns the slot number of the tracking channel.
func (event *TimeUpdate) Satellite() uint { return event.SatelliteID }

// String returns a readable version of the event.
func (event *TimeUpdate) String() string {
	return fmt.Sprintf("time update: satellite %d, %s\n",
		event.SatelliteID, event.State.String())
}

// Handler decodes the navigation message from one satellite's tracking
// channel.  Handlers for different satellites are independent - the
// only state they share is the receiver-wide time store.
type Handler struct {
	// satellite is the slot number of the tracked satellite.
	satellite uint

	// label is the satellite slot as a metric label.
	label string

	// assembler accumulates the decoded strings into records.
	assembler *assembler.Assembler

	// timeStore is the receiver-wide time state.
	timeStore *gnavtime.Store

	// syncLossesSeen is the synchronizer's loss count already added to
	// the metric.
	syncLossesSeen uint

	// restartsSeen is the assembler's restart count already added to
	// the metric.
	restartsSeen uint

	// logLevel is a slog-style logging level (Debug, Info etc).  It
	// controls the data that the String methods produce.
	logLevel slog.Level
}

// New creates a handler for the satellite in the given slot, sharing
// the given time store with the other satellites' handlers.  The log
// level controls the String functions.
func New(satellite uint, timeStore *gnavtime.Store, logLevel slog.Level) *Handler {

	handler := Handler{
		satellite: satellite,
		label:     strconv.Itoa(int(satellite)),
		assembler: assembler.New(timeStore, logLevel),
		timeStore: timeStore,
		logLevel:  logLevel,
	}

	return &handler
}

// HandleSymbols reads demodulated bits from ch_in, decodes the
// navigation message and writes the resulting events to ch_out.  The
// caller is responsible for creating and closing ch_in; HandleSymbols
// closes ch_out when the input is exhausted.
func (handler *Handler) HandleSymbols(ch_in chan pushback.Symbol, ch_out chan Event) {

	// Turn the input channel into a pushback channel and drive the
	// synchronizer from it.
	pb := pushback.New(ch_in)
	synchronizer := framesync.New(pb)

	for {
		rawString, err := synchronizer.GetNextRawString()

		// Account any sync losses, whether or not the input has ended.
		if losses := synchronizer.SyncLosses(); losses > handler.syncLossesSeen {
			syncLosses.WithLabelValues(handler.label).
				Add(float64(losses - handler.syncLossesSeen))
			handler.syncLossesSeen = losses
		}

		if err != nil {
			// There is no more input.
			close(ch_out)
			return
		}

		for _, event := range handler.ProcessRawString(rawString) {
			ch_out <- event
		}
	}
}

// ProcessRawString validates, decodes and assembles one synchronized
// navigation string and returns the events (if any) that it completed.
// A corrupted or unrecognized string returns no events.
func (handler *Handler) ProcessRawString(rawString *framesync.RawString) []Event {

	if rawString.Resync {
		// The synchronizer had to re-acquire sync, so the string order
		// context is lost and any partial records are untrustworthy.
		handler.assembler.Reset()
	}

	block := rawString.Data[:]

	if !hamming.Check(block) {
		checksumFailures.WithLabelValues(handler.label).Inc()
		return nil
	}

	events := handler.dispatch(block, rawString.Start)

	// Account any partial records the assembler discarded.
	if restarts := handler.assembler.Restarts(); restarts > handler.restartsSeen {
		assemblyRestarts.WithLabelValues(handler.label).
			Add(float64(restarts - handler.restartsSeen))
		handler.restartsSeen = restarts
	}

	return events
}

// dispatch decodes a validated string by its string number and feeds it
// to the assembler.
func (handler *Handler) dispatch(block []byte, start time.Time) []Event {

	stringID := fieldspec.StringID(block)

	switch {
	case stringID == 1:
		message, err := type1.GetMessage(block, handler.logLevel)
		if err != nil {
			return nil
		}
		return handler.ephemerisEvent(
			handler.assembler.ProcessString1(message, start))

	case stringID == 2:
		message, err := type2.GetMessage(block, handler.logLevel)
		if err != nil {
			return nil
		}
		return handler.ephemerisEvent(
			handler.assembler.ProcessString2(message, start))

	case stringID == 3:
		message, err := type3.GetMessage(block, handler.logLevel)
		if err != nil {
			return nil
		}
		return handler.ephemerisEvent(
			handler.assembler.ProcessString3(message, start))

	case stringID == 4:
		message, err := type4.GetMessage(block, handler.logLevel)
		if err != nil {
			return nil
		}
		return handler.ephemerisEvent(
			handler.assembler.ProcessString4(message, start))

	case stringID == 5:
		message, err := type5.GetMessage(block, handler.logLevel)
		if err != nil {
			return nil
		}
		state := handler.assembler.ProcessString5(message, start)
		stringsDecoded.WithLabelValues(handler.label).Inc()
		event := TimeUpdate{
			SatelliteID: handler.satellite,
			State:       *state,
			Timestamp:   start,
		}
		return []Event{&event}

	case stringID >= 6 && stringID <= utils.MaxStringID && stringID%2 == 0:
		message, err := typeeven.GetMessage(block, handler.logLevel)
		if err != nil {
			return nil
		}
		handler.assembler.ProcessEven(message, start)
		stringsDecoded.WithLabelValues(handler.label).Inc()
		return nil

	case stringID >= 7 && stringID <= utils.MaxStringID && stringID%2 == 1:
		message, err := typeodd.GetMessage(block, handler.logLevel)
		if err != nil {
			return nil
		}
		entry := handler.assembler.ProcessOdd(message, start)
		stringsDecoded.WithLabelValues(handler.label).Inc()
		if entry == nil {
			return nil
		}
		event := AlmanacReady{
			SatelliteID: handler.satellite,
			Entry:       *entry,
			Timestamp:   entry.Start,
		}
		return []Event{&event}

	default:
		// 0 is the idle pattern and anything else is garbage that
		// somehow passed the check bits.  Drop it and carry on.
		unknownStringIDs.WithLabelValues(handler.label).Inc()
		return nil
	}
}

// ephemerisEvent wraps a committed ephemeris in an event, resolving the
// reference time t_b to absolute UTC if the receiver's time state is
// already known.  A nil ephemeris (the set is not yet complete) gives
// no events.
func (handler *Handler) ephemerisEvent(ephemeris *assembler.Ephemeris) []Event {

	stringsDecoded.WithLabelValues(handler.label).Inc()

	if ephemeris == nil {
		return nil
	}

	event := EphemerisReady{
		SatelliteID: handler.satellite,
		Ephemeris:   *ephemeris,
		Timestamp:   ephemeris.Start,
	}

	state, ok := handler.timeStore.Get()
	if ok {
		resolved, err := gnavtime.Resolve(state,
			float64(ephemeris.TbSeconds()), gnavtime.UTC)
		if err == nil {
			event.Resolved = resolved
			event.ResolvedKnown = true
		}
	}

	return []Event{&event}
}
