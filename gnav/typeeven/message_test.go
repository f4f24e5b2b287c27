package typeeven

import (
	"log/slog"
	"testing"

	"github.com/goblimey/go-gnav/gnav/testdata"
	"github.com/goblimey/go-gnav/gnav/utils"
)

func TestGetMessage(t *testing.T) {

	values := map[string]int64{
		"C_n":         1,
		"M_n_A":       1,
		"n_A":         5,
		"tau_n_A":     -120,
		"lambda_n_A":  349525,
		"delta_i_n_A": -17476,
		"epsilon_n_A": 419,
	}

	// The even layout is shared by strings 6, 8, 10, 12 and 14.
	for _, stringID := range []uint{6, 8, 10, 12, 14} {
		block := testdata.BuildString(stringID, values)

		got, err := GetMessage(block[:], slog.LevelInfo)
		if err != nil {
			t.Fatal(err)
		}

		if got.StringID != stringID {
			t.Errorf("want string number %d got %d", stringID, got.StringID)
		}
		if got.Cn != 1 || got.Mna != 1 || got.Na != 5 {
			t.Errorf("string %d: flags wrong: %v", stringID, *got)
		}
		if got.TauNa != -120*utils.TwoToMinus18 {
			t.Errorf("want tau_n_A %g got %g",
				-120*utils.TwoToMinus18, got.TauNa)
		}

		// The angles are converted from semicircles to radians, so
		// compare within the field's quantization step.
		wantLambda := utils.SemiCirclesToRadians(349525 * utils.TwoToMinus20)
		if !utils.EqualWithin(9, wantLambda, got.LambdaNa) {
			t.Errorf("want lambda_n_A %g got %g", wantLambda, got.LambdaNa)
		}
		wantDeltaI := utils.SemiCirclesToRadians(-17476 * utils.TwoToMinus20)
		if !utils.EqualWithin(9, wantDeltaI, got.DeltaINa) {
			t.Errorf("want delta_i_n_A %g got %g", wantDeltaI, got.DeltaINa)
		}
		if got.EpsilonNa != 419*utils.TwoToMinus20 {
			t.Errorf("want epsilon_n_A %g got %g",
				419*utils.TwoToMinus20, got.EpsilonNa)
		}
	}
}

func TestGetMessageWithWrongString(t *testing.T) {

	// An odd almanac string is not acceptable here.
	block := testdata.BuildString(7, map[string]int64{"H_n_A": 5})

	const want = "expected an even almanac string number (6-14) got 7"
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
