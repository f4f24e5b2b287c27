package jsonconfig

import (
	"log"
	"strings"
	"testing"

	"github.com/goblimey/go-tools/switchwriter"
)

// TestGetJSONControl tests that the correct data is produced when the
// text from a JSON control file is unmarshalled.
func TestGetJSONControl(t *testing.T) {
	reader := strings.NewReader(`{
		"input": ["a", "b"],
		"satellite": 3,
		"serialbaud": 115200,
		"writeeventlog": true,
		"logdirectory": "someDirectory",
		"metricsport": 2112,
		"timeout": 1,
		"sleeptime": 2
	}`)

	writer := switchwriter.New()
	logger := log.New(writer, "jsonconfig_test", 0)

	config, err := getJSONConfig(reader, logger)
	if err != nil {
		t.Fatal(err)
	}

	if config == nil {
		t.Fatal("parsing json failed - nil")
	}

	numFiles := len(config.Filenames)
	if numFiles != 2 {
		t.Fatalf("parsing json, expected 2 files, got %d", numFiles)
	}

	if config.Filenames[0] != "a" {
		t.Errorf("parsing json, expected file 0 to be a, got %s",
			config.Filenames[0])
	}

	if config.Filenames[1] != "b" {
		t.Errorf("parsing json, expected file 1 to be b, got %s",
			config.Filenames[1])
	}

	if config.Satellite != 3 {
		t.Errorf("parsing json, expected satellite to be 3, got %d",
			config.Satellite)
	}

	if config.SerialBaud != 115200 {
		t.Errorf("parsing json, expected serial baud to be 115200, got %d",
			config.SerialBaud)
	}

	if !config.WriteEventLog {
		t.Error("parsing json, expected writeeventlog to be true")
	}

	if config.LogDirectory != "someDirectory" {
		t.Errorf("parsing json, expected log directory to be \"someDirectory\", got \"%s\"",
			config.LogDirectory)
	}

	if config.MetricsPort != 2112 {
		t.Errorf("parsing json, expected metrics port to be 2112, got %d",
			config.MetricsPort)
	}

	if config.LostInputConnectionTimeout != 1 {
		t.Errorf("parsing json, expected timeout to be 1, got %d",
			config.LostInputConnectionTimeout)
	}

	if config.LostInputConnectionSleepTime != 2 {
		t.Errorf("parsing json, expected sleep time to be 2, got %d",
			config.LostInputConnectionSleepTime)
	}
}

// TestGetJSONControlWithBadJSON tests the error handling when the
// control file is not legal JSON.
func TestGetJSONControlWithBadJSON(t *testing.T) {
	reader := strings.NewReader(`{"input": ["a", "b"`)

	writer := switchwriter.New()
	logger := log.New(writer, "jsonconfig_test", 0)

	config, err := getJSONConfig(reader, logger)
	if err == nil {
		t.Error("expected an error")
	}
	if config != nil {
		t.Error("expected the config to be nil")
	}
}
