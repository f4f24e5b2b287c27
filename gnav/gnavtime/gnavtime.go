// The gnavtime package turns the epoch counters of the navigation
// message into absolute calendar time.  GLONASS time doesn't carry a
// simple week number and second-of-week the way GPS time does - a
// moment is identified by the four-year interval number N_4 (counted
// from 1996), the day number N_T within that interval, and a number of
// seconds within the day.  The day starts at midnight Moscow time,
// which GLONASS keeps as a fixed UTC+3.
//
// The counters N_4 and N_T arrive in strings 4 and 5 of the navigation
// message, so until a string 5 has been decoded the receiver cannot
// resolve any timestamp.  The resolver reports that as unresolved
// rather than guessing.
//
// The receiver-wide time state is shared by all the satellite decoders
// but written only by whichever of them is decoding a string 5 at the
// time.  The Store publishes each new state as an immutable snapshot
// which readers pick up atomically, so the decoders never contend on a
// lock.
package gnavtime

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goblimey/go-gnav/gnav/utils"
)

// ErrUnresolved is returned when a timestamp is requested before any
// string 5 has been decoded.  It signals "not yet available", not a
// decoder failure.
var ErrUnresolved = errors.New("time unresolved - no string 5 decoded yet")

// State is the receiver-wide GLONASS time state, assembled from a
// validly decoded string 5 (N_4, tau_c, tau_GPS) and the day number
// N_T from string 4.  A State is immutable once published.
type State struct {
	// N4 is the number of the current four-year interval.  Interval 1
	// started on the 1st of January 1996 (Moscow time).
	N4 uint

	// Nt is the day number within the four-year interval, starting
	// at 1.
	Nt uint

	// TauC is the offset of GLONASS time from UTC(SU) in seconds.
	TauC float64

	// TauGPS is the correction from GPS time to GLONASS time in
	// seconds.
	TauGPS float64

	// Updated is the receiver-local time at which the string 5 that
	// produced this state was decoded.
	Updated time.Time
}

// String returns a readable version of the state.
func (state *State) String() string {
	return fmt.Sprintf("N_4 %d, N_T %d, tau_c %g s, tau_GPS %g s",
		state.N4, state.Nt, state.TauC, state.TauGPS)
}

// Store holds the latest committed time state.  One satellite decoder
// writes it (the one currently decoding a string 5) and all of them
// read it, so it's published by atomic snapshot-replace rather than
// guarded by a lock.
type Store struct {
	current atomic.Pointer[State]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Put publishes a new time state.  The caller must not modify the
// state after publishing it.
func (store *Store) Put(state *State) {
	store.current.Store(state)
}

// Get returns the latest committed time state, or false if no string 5
// has been decoded yet.  Once set, the state is never reset to unknown -
// a transient decode gap leaves the previous value in place.
func (store *Store) Get() (*State, bool) {
	state := store.current.Load()
	return state, state != nil
}

// Reference names the time system in which a resolved timestamp should
// be expressed.
type Reference int

const (
	// Glonass - GLONASS system time (Moscow time).
	Glonass Reference = iota
	// UTC - coordinated universal time, via the broadcast tau_c.
	UTC
	// GPS - GPS system time, via tau_c, the leap second count and the
	// broadcast tau_GPS.
	GPS
)

// Resolve combines the time state with a number of seconds within the
// GLONASS day (t_b or t_k from the navigation message) to produce an
// absolute timestamp in the requested time system.  It returns
// ErrUnresolved if the state is not yet known.
func Resolve(state *State, secondsOfDay float64, reference Reference) (time.Time, error) {

	if state == nil {
		return time.Time{}, ErrUnresolved
	}

	if state.N4 < 1 {
		em := fmt.Sprintf("illegal four-year interval number %d", state.N4)
		return time.Time{}, errors.New(em)
	}

	if state.Nt < 1 {
		em := fmt.Sprintf("illegal day number %d", state.Nt)
		return time.Time{}, errors.New(em)
	}

	// Start of the four-year interval, midnight Moscow time.
	year := 1996 + 4*(int(state.N4)-1)
	startOfInterval := time.Date(year, time.January, 1, 0, 0, 0, 0,
		utils.LocationMoscow)

	// Add the day number and the seconds of day.  The day count is in
	// whole days from the start of the interval, so leap years inside
	// the interval take care of themselves.
	days := time.Duration(state.Nt-1) * 24 * time.Hour
	seconds := time.Duration(secondsOfDay * float64(time.Second))
	glonassTime := startOfInterval.Add(days + seconds)

	switch reference {
	case Glonass:
		return glonassTime, nil
	case UTC:
		// UTC(SU) = GLONASS time - 3h + tau_c.  The Moscow timezone
		// handles the three hours; tau_c is the residual correction.
		return glonassTime.Add(tauCDuration(state)).In(utils.LocationUTC), nil
	case GPS:
		// GPS time runs ahead of UTC by the accumulated leap seconds;
		// tau_GPS is the broadcast sub-second refinement.
		gpsTime := glonassTime.Add(tauCDuration(state) +
			utils.GPSLeapSeconds*time.Second +
			time.Duration(state.TauGPS*float64(time.Second)))
		return gpsTime.In(utils.LocationUTC), nil
	default:
		em := fmt.Sprintf("unknown time reference %d", int(reference))
		return time.Time{}, errors.New(em)
	}
}

func tauCDuration(state *State) time.Duration {
	return time.Duration(state.TauC * float64(time.Second))
}
