// The assembler package accumulates decoded navigation strings into
// complete records.  The data for one satellite is spread across the
// strings of a frame: the ephemeris ("immediate data") arrives in
// strings 1 to 4, the time state in string 5, and the almanac
// ("non-immediate data") for one slot arrives as a pair of strings - an
// even string carrying the first half and the odd string after it
// carrying the second.
//
// The assembler holds at most one partly built record of each kind.  A
// record is committed (copied and handed to the caller) only when every
// part of it has arrived and validated; partial records are never
// visible outside.  If a new frame starts before the old one's set
// completed, or the old one's frame moves on without completing it,
// the old partial record is discarded - the newest data always wins,
// and fields from different frames are never merged into one record.
package assembler

import (
	"log/slog"
	"time"

	"github.com/goblimey/go-gnav/gnav/gnavtime"
	"github.com/goblimey/go-gnav/gnav/type1"
	"github.com/goblimey/go-gnav/gnav/type2"
	"github.com/goblimey/go-gnav/gnav/type3"
	"github.com/goblimey/go-gnav/gnav/type4"
	"github.com/goblimey/go-gnav/gnav/type5"
	"github.com/goblimey/go-gnav/gnav/typeeven"
	"github.com/goblimey/go-gnav/gnav/typeodd"
	"github.com/goblimey/go-gnav/gnav/utils"
)

// Ephemeris is the committed immediate data of one satellite - the
// contents of strings 1 to 4 of one frame.  Positions are in metres,
// velocities in m/s, accelerations in m/s/s, clock quantities in
// seconds, all in PZ-90 coordinates.
type Ephemeris struct {
	// Slot is the satellite's slot number, 1-24, from string 4.
	Slot uint

	// Tk is the time of the frame start, in seconds within the current
	// GLONASS day.
	Tk uint

	// Tb is the reference time index of this ephemeris, in units of 15
	// minutes within the current GLONASS day.
	Tb uint

	// Position, Velocity and Acceleration are the X, Y and Z components
	// of the satellite state vector.
	Position     [3]float64
	Velocity     [3]float64
	Acceleration [3]float64

	// TauN is the satellite clock bias in seconds and GammaN the
	// relative frequency bias.
	TauN   float64
	GammaN float64

	// DeltaTauN is the L2-L1 time difference in seconds.
	DeltaTauN float64

	// Bn and Ln are the health flags, En the age of the data in days,
	// Ft the accuracy index and M the satellite type.
	Bn uint
	Ln uint
	En uint
	Ft uint
	M  uint

	// Nt is the day number from string 4.
	Nt uint

	// Start is the receiver-local time of the first string of the set.
	Start time.Time
}

// TbSeconds returns the reference time t_b as seconds within the
// GLONASS day.
func (ephemeris *Ephemeris) TbSeconds() uint {
	return ephemeris.Tb * 900
}

// AlmanacEntry is the committed almanac data for one slot - the
// contents of one even/odd string pair.  Angles are in radians, times
// in seconds.
type AlmanacEntry struct {
	// Slot is the almanac slot n_A that this entry describes, 1-24.
	Slot uint

	// Cn is the health flag (0 means non-operational), Mna the
	// satellite type and Hna the carrier frequency number.
	Cn  uint
	Mna uint
	Hna uint
	Ln  uint

	// TauNa is the coarse clock correction in seconds.
	TauNa float64

	// LambdaNa is the longitude of the first ascending node and
	// DeltaINa the correction to the nominal inclination, in radians.
	LambdaNa float64
	DeltaINa float64

	// EpsilonNa is the orbit's eccentricity.
	EpsilonNa float64

	// OmegaNa is the argument of perigee in radians.
	OmegaNa float64

	// TLambdaNa is the time of the ascending node passage in seconds
	// within the day N_A.
	TLambdaNa float64

	// DeltaTNa is the correction to the nominal orbital period in
	// seconds and DeltaTDotNa its rate of change.
	DeltaTNa    float64
	DeltaTDotNa float64

	// Start is the receiver-local time of the even string of the pair.
	Start time.Time
}

// Assembler accumulates the decoded strings of one satellite's frames.
// It's internally sequential - one per tracking channel, not shared.
type Assembler struct {
	// timeStore is the receiver-wide time state, shared with the other
	// satellites' assemblers.
	timeStore *gnavtime.Store

	// partial is the ephemeris being built from the current frame's
	// strings 1-4, and got records which of them have arrived.
	partial Ephemeris
	got     [5]bool

	// pendingAlmanac is the first half of an almanac entry, waiting for
	// the odd string that completes it.  The odd strings don't repeat
	// the slot number, so the pair must arrive back to back:
	// expectedOdd is the string number that must come next.
	pendingAlmanac *AlmanacEntry
	expectedOdd    uint

	// lastMerged is the number of the last string merged into the
	// partial.  Strings arrive in order within a frame, so a string at
	// or below this number belongs to a later frame.
	lastMerged uint

	// lastNt is the day number from the most recent string 4, used
	// when publishing the time state from string 5.  haveNt says
	// whether any string 4 has been seen yet.
	lastNt uint
	haveNt bool

	// restarts counts partial records discarded without completing -
	// superseded by a newer set, or stranded when their frame ended.
	restarts uint

	logLevel slog.Level
}

// New creates an Assembler publishing time state to the given store.
func New(timeStore *gnavtime.Store, logLevel slog.Level) *Assembler {
	assembler := Assembler{
		timeStore: timeStore,
		logLevel:  logLevel,
	}
	return &assembler
}

// Restarts returns the number of partial records discarded because a
// newer set superseded them.
func (assembler *Assembler) Restarts() uint {
	return assembler.restarts
}

// Reset discards all in-progress state.  The synchronizer drives this
// whenever it has to re-acquire sync - the string order context is lost
// across a resync, so anything partly assembled is untrustworthy.
// The committed time state survives: it was complete when published.
func (assembler *Assembler) Reset() {
	assembler.clearEphemeris()
	assembler.clearAlmanac()
}

func (assembler *Assembler) clearEphemeris() {
	assembler.partial = Ephemeris{}
	for i := range assembler.got {
		assembler.got[i] = false
	}
	assembler.lastMerged = 0
}

func (assembler *Assembler) clearAlmanac() {
	assembler.pendingAlmanac = nil
	assembler.expectedOdd = 0
}

// ephemerisInProgress reports whether any of the current frame's
// strings 1-4 have arrived.
func (assembler *Assembler) ephemerisInProgress() bool {
	return assembler.got[1] || assembler.got[2] ||
		assembler.got[3] || assembler.got[4]
}

// continueEphemeris prepares the partial for merging string n.  Strings
// arrive in order within a frame, so a string numbered at or below one
// already merged means the set in progress belongs to an earlier frame:
// it is discarded rather than completed with the new frame's fields.
func (assembler *Assembler) continueEphemeris(n uint, start time.Time) {
	if assembler.ephemerisInProgress() && n <= assembler.lastMerged {
		assembler.restarts++
		assembler.clearEphemeris()
	}
	if !assembler.ephemerisInProgress() {
		assembler.partial.Start = start
	}
	assembler.lastMerged = n
}

// ephemerisFrameOver discards an incomplete ephemeris when a string
// past number 4 arrives.  Strings arrive in order, so the frame that
// started the set is over and its missing strings will never come;
// keeping the partial would let the next frame's strings complete it.
func (assembler *Assembler) ephemerisFrameOver() {
	if assembler.ephemerisInProgress() {
		assembler.restarts++
		assembler.clearEphemeris()
	}
}

// commitEphemerisIfComplete returns a copy of the partial ephemeris if
// all four strings have arrived, clearing the partial for the next
// frame.  Otherwise it returns nil.
func (assembler *Assembler) commitEphemerisIfComplete() *Ephemeris {
	if !(assembler.got[1] && assembler.got[2] &&
		assembler.got[3] && assembler.got[4]) {
		return nil
	}
	committed := assembler.partial
	assembler.clearEphemeris()
	return &committed
}

// ProcessString1 merges a type 1 message into the ephemeris being
// built.  String 1 marks the start of a frame, so if a set is already
// in progress it's discarded first - no merging data from two frames.
// It returns the committed ephemeris if this string completed the set
// (it can't, other than in a replayed or reordered test stream), or
// nil.
func (assembler *Assembler) ProcessString1(message *type1.Message, start time.Time) *Ephemeris {
	assembler.continueEphemeris(1, start)
	assembler.partial.Tk = message.Tk()
	assembler.partial.Position[0] = message.PositionX
	assembler.partial.Velocity[0] = message.VelocityX
	assembler.partial.Acceleration[0] = message.AccelerationX
	assembler.got[1] = true

	return assembler.commitEphemerisIfComplete()
}

// ProcessString2 merges a type 2 message into the ephemeris being
// built and returns the committed ephemeris if it completed the set.
func (assembler *Assembler) ProcessString2(message *type2.Message, start time.Time) *Ephemeris {
	assembler.continueEphemeris(2, start)
	assembler.partial.Bn = message.Bn
	assembler.partial.Tb = message.Tb
	assembler.partial.Position[1] = message.PositionY
	assembler.partial.Velocity[1] = message.VelocityY
	assembler.partial.Acceleration[1] = message.AccelerationY
	assembler.got[2] = true

	return assembler.commitEphemerisIfComplete()
}

// ProcessString3 merges a type 3 message into the ephemeris being
// built and returns the committed ephemeris if it completed the set.
func (assembler *Assembler) ProcessString3(message *type3.Message, start time.Time) *Ephemeris {
	assembler.continueEphemeris(3, start)
	assembler.partial.GammaN = message.GammaN
	assembler.partial.Ln = message.Ln
	assembler.partial.Position[2] = message.PositionZ
	assembler.partial.Velocity[2] = message.VelocityZ
	assembler.partial.Acceleration[2] = message.AccelerationZ
	assembler.got[3] = true

	return assembler.commitEphemerisIfComplete()
}

// ProcessString4 merges a type 4 message into the ephemeris being
// built and returns the committed ephemeris if it completed the set.
// String 4 also carries the day number N_T, which is remembered for the
// time state published by the next string 5.  A slot number outside
// 1-24 can't describe a real satellite, so such a string is dropped
// whole, day number included.
func (assembler *Assembler) ProcessString4(message *type4.Message, start time.Time) *Ephemeris {
	if message.N < 1 || message.N > utils.MaxAlmanacSlot {
		return nil
	}

	assembler.continueEphemeris(4, start)
	assembler.partial.Slot = message.N
	assembler.partial.TauN = message.TauN
	assembler.partial.DeltaTauN = message.DeltaTauN
	assembler.partial.En = message.En
	assembler.partial.Ft = message.Ft
	assembler.partial.M = message.M
	assembler.partial.Nt = message.Nt
	assembler.lastNt = message.Nt
	assembler.haveNt = true
	assembler.got[4] = true

	return assembler.commitEphemerisIfComplete()
}

// ProcessString5 publishes a new receiver-wide time state and returns
// it.  The day number comes from the last string 4; before any string 4
// has been seen the almanac reference day N_A stands in for it.
func (assembler *Assembler) ProcessString5(message *type5.Message, start time.Time) *gnavtime.State {
	assembler.ephemerisFrameOver()

	nt := message.Na
	if assembler.haveNt {
		nt = assembler.lastNt
	}
	state := gnavtime.State{
		N4:      message.N4,
		Nt:      nt,
		TauC:    message.TauC,
		TauGPS:  message.TauGPS,
		Updated: start,
	}
	assembler.timeStore.Put(&state)
	return &state
}

// ProcessEven starts a new almanac entry from an even string.  Any
// pending entry still waiting for its second half is discarded - the
// halves must arrive back to back.  An entry with a slot number outside
// 1-24 marks an unused frame position and is ignored.
func (assembler *Assembler) ProcessEven(message *typeeven.Message, start time.Time) {
	assembler.ephemerisFrameOver()

	if assembler.pendingAlmanac != nil {
		assembler.restarts++
		assembler.clearAlmanac()
	}

	if message.Na < 1 || message.Na > utils.MaxAlmanacSlot {
		return
	}

	entry := AlmanacEntry{
		Slot:      message.Na,
		Cn:        message.Cn,
		Mna:       message.Mna,
		TauNa:     message.TauNa,
		LambdaNa:  message.LambdaNa,
		DeltaINa:  message.DeltaINa,
		EpsilonNa: message.EpsilonNa,
		Start:     start,
	}
	assembler.pendingAlmanac = &entry
	assembler.expectedOdd = message.StringID + 1
}

// ProcessOdd completes a pending almanac entry with an odd string and
// returns the committed entry.  The odd strings don't carry the slot
// number, so the pairing is positional: the odd string must be the one
// directly after the pending entry's even string.  Anything else means
// the pair is broken - both halves are dropped and pairing restarts at
// the next even string.
func (assembler *Assembler) ProcessOdd(message *typeodd.Message, start time.Time) *AlmanacEntry {
	assembler.ephemerisFrameOver()

	if assembler.pendingAlmanac == nil {
		// An odd string with no first half - nothing to pair it with.
		return nil
	}

	if message.StringID != assembler.expectedOdd {
		assembler.restarts++
		assembler.clearAlmanac()
		return nil
	}

	committed := *assembler.pendingAlmanac
	committed.OmegaNa = message.OmegaNa
	committed.TLambdaNa = message.TLambdaNa
	committed.DeltaTNa = message.DeltaTNa
	committed.DeltaTDotNa = message.DeltaTDotNa
	committed.Hna = message.Hna
	committed.Ln = message.Ln
	assembler.clearAlmanac()

	return &committed
}
