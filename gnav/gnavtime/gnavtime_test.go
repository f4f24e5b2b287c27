package gnavtime

import (
	"testing"
	"time"

	"github.com/goblimey/go-gnav/gnav/utils"
)

// TestResolveGlonass checks the epoch arithmetic: four-year interval 7
// started on the 1st of January 2020 (Moscow time), and day 100 of a
// leap year is the 9th of April.
func TestResolveGlonass(t *testing.T) {
	state := State{N4: 7, Nt: 100}

	got, err := Resolve(&state, 40500, Glonass)
	if err != nil {
		t.Fatal(err)
	}

	want := time.Date(2020, time.April, 9, 11, 15, 0, 0, utils.LocationMoscow)
	if !got.Equal(want) {
		t.Errorf("want %v got %v", want, got)
	}
}

// TestResolveUTC checks the conversion to UTC: three hours behind
// Moscow, shifted by tau_c.
func TestResolveUTC(t *testing.T) {
	state := State{N4: 7, Nt: 100, TauC: 0.5}

	got, err := Resolve(&state, 40500, UTC)
	if err != nil {
		t.Fatal(err)
	}

	want := time.Date(2020, time.April, 9, 8, 15, 0, 500000000, utils.LocationUTC)
	if !got.Equal(want) {
		t.Errorf("want %v got %v", want, got)
	}
}

// TestResolveGPS checks the conversion to GPS time: UTC plus the leap
// seconds plus the broadcast tau_GPS.
func TestResolveGPS(t *testing.T) {
	state := State{N4: 7, Nt: 100, TauC: 0.5, TauGPS: 0.25}

	got, err := Resolve(&state, 40500, GPS)
	if err != nil {
		t.Fatal(err)
	}

	want := time.Date(2020, time.April, 9, 8, 15, 18, 750000000, utils.LocationUTC)
	if !got.Equal(want) {
		t.Errorf("want %v got %v", want, got)
	}
}

// TestResolveDayRollover checks that the day count carries across the
// leap day: day 61 of interval 7 is the 1st of March 2020.
func TestResolveDayRollover(t *testing.T) {
	state := State{N4: 7, Nt: 61}

	got, err := Resolve(&state, 0, Glonass)
	if err != nil {
		t.Fatal(err)
	}

	want := time.Date(2020, time.March, 1, 0, 0, 0, 0, utils.LocationMoscow)
	if !got.Equal(want) {
		t.Errorf("want %v got %v", want, got)
	}
}

// TestResolveUnresolved checks the report before any string 5 has been
// decoded.
func TestResolveUnresolved(t *testing.T) {
	if _, err := Resolve(nil, 0, Glonass); err != ErrUnresolved {
		t.Errorf("want %v got %v", ErrUnresolved, err)
	}
}

// TestResolveIllegalCounters checks the handling of out-of-range epoch
// counters.
func TestResolveIllegalCounters(t *testing.T) {
	var testData = []struct {
		description string
		state       State
		wantError   string
	}{
		{"N_4 zero", State{N4: 0, Nt: 1}, "illegal four-year interval number 0"},
		{"N_T zero", State{N4: 1, Nt: 0}, "illegal day number 0"},
	}

	for _, td := range testData {
		_, err := Resolve(&td.state, 0, Glonass)
		if err == nil {
			t.Errorf("%s: expected an error", td.description)
			continue
		}
		if err.Error() != td.wantError {
			t.Errorf("%s: want %s got %s",
				td.description, td.wantError, err.Error())
		}
	}
}

// TestStore checks the publish-and-read cycle of the shared time state.
func TestStore(t *testing.T) {
	store := NewStore()

	if _, ok := store.Get(); ok {
		t.Error("empty store claims to have a state")
	}

	first := State{N4: 7, Nt: 100}
	store.Put(&first)

	got, ok := store.Get()
	if !ok {
		t.Fatal("store lost its state")
	}
	if got.N4 != 7 || got.Nt != 100 {
		t.Errorf("want N_4 7 N_T 100 got %s", got.String())
	}

	// A newer state replaces the old one.
	second := State{N4: 7, Nt: 101}
	store.Put(&second)
	got, _ = store.Get()
	if got.Nt != 101 {
		t.Errorf("want N_T 101 got %d", got.Nt)
	}
}
