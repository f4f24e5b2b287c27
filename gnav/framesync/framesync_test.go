package framesync

import (
	"testing"
	"time"

	"github.com/goblimey/go-gnav/gnav/pushback"
	"github.com/goblimey/go-gnav/gnav/testdata"
	"github.com/goblimey/go-gnav/gnav/utils"
)

var streamStart = time.Date(2023, time.May, 12, 0, 0, 0, 0, time.UTC)

// feed builds a synchronizer reading the given symbols.
func feed(symbols []pushback.Symbol) *Synchronizer {
	ch := make(chan pushback.Symbol, len(symbols))
	for _, symbol := range symbols {
		ch <- symbol
	}
	close(ch)
	return New(pushback.New(ch))
}

// collect reads raw strings until the input is exhausted.
func collect(t *testing.T, synchronizer *Synchronizer) []*RawString {
	t.Helper()
	var result []*RawString
	for {
		rawString, err := synchronizer.GetNextRawString()
		if err != nil {
			return result
		}
		result = append(result, rawString)
	}
}

// corruptTimeMark flips three bits of the time mark of the string at
// the given index, which is enough to push the correlation below the
// threshold in both polarities.
func corruptTimeMark(symbols []pushback.Symbol, prefix, stringIndex int) {
	base := prefix + stringIndex*utils.StringLengthBits
	for i := 0; i < 3; i++ {
		symbols[base+i].Bit ^= 1
	}
}

// TestSyncAcquisition feeds a frame with some leading noise and checks
// that every string comes back intact, with the right timestamps and
// with only the first flagged as a resync.
func TestSyncAcquisition(t *testing.T) {
	const prefix = 17
	blocks := testdata.Slot3Frame()
	symbols := append(testdata.LeadingZeros(prefix, streamStart),
		testdata.Symbols(blocks, streamStart.Add(prefix*utils.BitDuration), false)...)

	synchronizer := feed(symbols)
	got := collect(t, synchronizer)

	if len(got) != len(blocks) {
		t.Fatalf("want %d strings got %d", len(blocks), len(got))
	}

	for i := range got {
		if got[i].Data != blocks[i] {
			t.Errorf("string %d: data does not match", i)
		}
		wantResync := i == 0
		if got[i].Resync != wantResync {
			t.Errorf("string %d: want resync %v got %v",
				i, wantResync, got[i].Resync)
		}
		if got[i].Inverted {
			t.Errorf("string %d: polarity wrongly marked inverted", i)
		}
		wantStart := streamStart.Add(
			time.Duration(prefix+i*utils.StringLengthBits) * utils.BitDuration)
		if !got[i].Start.Equal(wantStart) {
			t.Errorf("string %d: want start %v got %v",
				i, wantStart, got[i].Start)
		}
	}

	if synchronizer.SyncLosses() != 0 {
		t.Errorf("want 0 sync losses got %d", synchronizer.SyncLosses())
	}
}

// TestPolarityInvariance feeds the same frame with every bit inverted
// and checks that the decoded data is identical to the non-inverted
// case.
func TestPolarityInvariance(t *testing.T) {
	blocks := testdata.Slot3Frame()
	symbols := testdata.Symbols(blocks, streamStart, true)

	synchronizer := feed(symbols)
	got := collect(t, synchronizer)

	if len(got) != len(blocks) {
		t.Fatalf("want %d strings got %d", len(blocks), len(got))
	}

	for i := range got {
		if !got[i].Inverted {
			t.Errorf("string %d: polarity not marked inverted", i)
		}
		if got[i].Data != blocks[i] {
			t.Errorf("string %d: data does not match after inversion", i)
		}
	}
}

// TestOneMissTolerated corrupts a single time mark mid-frame and checks
// that only that string is lost - sync is kept and the following
// strings arrive without a resync.
func TestOneMissTolerated(t *testing.T) {
	const corrupted = 5
	blocks := testdata.Slot3Frame()
	symbols := testdata.Symbols(blocks, streamStart, false)
	corruptTimeMark(symbols, 0, corrupted)

	synchronizer := feed(symbols)
	got := collect(t, synchronizer)

	if len(got) != len(blocks)-1 {
		t.Fatalf("want %d strings got %d", len(blocks)-1, len(got))
	}

	want := append(blocks[:corrupted:corrupted], blocks[corrupted+1:]...)
	for i := range got {
		if got[i].Data != want[i] {
			t.Errorf("string %d: data does not match", i)
		}
		if i > 0 && got[i].Resync {
			t.Errorf("string %d: unexpected resync", i)
		}
	}

	if synchronizer.SyncLosses() != 0 {
		t.Errorf("want 0 sync losses got %d", synchronizer.SyncLosses())
	}
}

// TestSyncLossAndReacquire corrupts two consecutive time marks and
// checks that sync is dropped, counted, and then re-acquired at the
// next intact string, which arrives flagged as a resync.
func TestSyncLossAndReacquire(t *testing.T) {
	blocks := testdata.Slot3Frame()
	symbols := testdata.Symbols(blocks, streamStart, false)
	corruptTimeMark(symbols, 0, 5)
	corruptTimeMark(symbols, 0, 6)

	synchronizer := feed(symbols)
	got := collect(t, synchronizer)

	// Strings 0-4 before the corruption, 7-14 after re-acquiring.
	want := append(blocks[:5:5], blocks[7:]...)
	if len(got) != len(want) {
		t.Fatalf("want %d strings got %d", len(want), len(got))
	}

	for i := range got {
		if got[i].Data != want[i] {
			t.Errorf("string %d: data does not match", i)
		}
	}

	// The first string and the first one after the loss are resyncs.
	if !got[0].Resync {
		t.Error("first string not flagged as a resync")
	}
	if !got[5].Resync {
		t.Error("first string after the loss not flagged as a resync")
	}
	for i := range got {
		if i != 0 && i != 5 && got[i].Resync {
			t.Errorf("string %d: unexpected resync", i)
		}
	}

	if synchronizer.SyncLosses() != 1 {
		t.Errorf("want 1 sync loss got %d", synchronizer.SyncLosses())
	}
}

// TestReacquireInsideFailedMark loses sync at a point where the second
// failed time mark contains the start of the next string's real mark,
// and checks that the string is still recovered: the bits read as the
// failed mark are pushed back and re-examined by the search.
func TestReacquireInsideFailedMark(t *testing.T) {
	blocks := testdata.Slot3Frame()[:2]

	// One good string, then a string's worth of noise (the first missed
	// mark - its data block is consumed blind), then ten more noise bits
	// so that the next expected mark reads as ten zeros plus the first
	// twenty bits of the second string's mark, which fails - the second
	// consecutive miss.
	symbols := testdata.Symbols(blocks[:1], streamStart, false)
	symbols = append(symbols, testdata.LeadingZeros(utils.StringLengthBits,
		streamStart.Add(utils.StringLengthBits*utils.BitDuration))...)
	symbols = append(symbols, testdata.LeadingZeros(10,
		streamStart.Add(2*utils.StringLengthBits*utils.BitDuration))...)
	secondStart := streamStart.Add(
		(2*utils.StringLengthBits + 10) * utils.BitDuration)
	symbols = append(symbols, testdata.Symbols(blocks[1:], secondStart, false)...)

	synchronizer := feed(symbols)
	got := collect(t, synchronizer)

	if len(got) != 2 {
		t.Fatalf("want 2 strings got %d", len(got))
	}
	if got[1].Data != blocks[1] {
		t.Error("recovered string: data does not match")
	}
	if !got[1].Resync {
		t.Error("recovered string not flagged as a resync")
	}
	if !got[1].Start.Equal(secondStart) {
		t.Errorf("want start %v got %v", secondStart, got[1].Start)
	}
	if synchronizer.SyncLosses() != 1 {
		t.Errorf("want 1 sync loss got %d", synchronizer.SyncLosses())
	}
}

// TestThresholdTolerance flips two bits of a time mark - within the
// default threshold - and checks that sync is acquired anyway.
func TestThresholdTolerance(t *testing.T) {
	blocks := testdata.Slot3Frame()
	symbols := testdata.Symbols(blocks, streamStart, false)
	base := 1 * utils.StringLengthBits
	symbols[base].Bit ^= 1
	symbols[base+11].Bit ^= 1

	synchronizer := feed(symbols)
	got := collect(t, synchronizer)

	if len(got) != len(blocks) {
		t.Fatalf("want %d strings got %d", len(blocks), len(got))
	}
	if synchronizer.SyncLosses() != 0 {
		t.Errorf("want 0 sync losses got %d", synchronizer.SyncLosses())
	}
}

// TestEmptyInput checks that a synchronizer over a closed empty channel
// reports the end of input.
func TestEmptyInput(t *testing.T) {
	synchronizer := feed(nil)
	if _, err := synchronizer.GetNextRawString(); err == nil {
		t.Error("expected an error from an empty input")
	}
}
