package type3

import (
	"log/slog"
	"testing"

	"github.com/goblimey/go-gnav/gnav/testdata"
	"github.com/goblimey/go-gnav/gnav/utils"
)

func TestGetMessage(t *testing.T) {

	block := testdata.BuildString(3, map[string]int64{
		"P3":          1,
		"gamma_n":     -353,
		"P":           2,
		"l_n":         1,
		"z_n_dot":     1519262,
		"z_n_dot_dot": -1,
		"z_n":         18904443,
	})

	want := New(1, -353*utils.TwoToMinus40, 2, 1,
		1519262*utils.TwoToMinus20*utils.KMToMetres,
		-1*utils.TwoToMinus30*utils.KMToMetres,
		18904443*utils.TwoToMinus11*utils.KMToMetres,
		slog.LevelInfo)

	got, err := GetMessage(block[:], slog.LevelInfo)
	if err != nil {
		t.Fatal(err)
	}

	if *want != *got {
		t.Errorf("want: %v\n got: %v\n", *want, *got)
	}
}

func TestGetMessageWithWrongString(t *testing.T) {

	block := testdata.BuildString(1, map[string]int64{"P1": 1})

	const want = "expected string number 3 got 1"
	message, err := GetMessage(block[:], slog.LevelInfo)
	if err == nil {
		t.Error("expected an error")
		return
	}
	if err.Error() != want {
		t.Errorf("want %s, got %s", want, err.Error())
	}
	if message != nil {
		t.Error("expected the message to be nil")
	}
}
