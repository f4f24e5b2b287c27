package jsonconfig

// The jsonconfig package provides support for reading and using a JSON
// configuration file in a standard format for the GNAV applications.
//
// An example config file:
//
// {
//		"input": ["/dev/ttyACM0", "/dev/ttyACM1", "capture.bits"],
//		"satellite": 3,
//		"serialbaud": 115200,
//		"writeeventlog": true,
//		"logdirectory": "logs",
//		"metricsport": 2112,
//		"timeout": 1,
//		"sleeptime": 2
//	}
//
// This example suits a receiver running on a Raspberry Pi with a tracking
// front end connected over a serial USB line, delivering the demodulated
// navigation bits of the satellite in slot 3.  The config specifies the
// list of Linux devices (or recorded capture files) that may carry the
// bit stream, the serial baud rate (ignored when the input is a plain
// file), flags that determine which outputs should be enabled, the port
// for the metrics server and some controls for handling timeouts and
// retries if the incoming bit stream dies.
//
// The package contains functions to read a configuration from a file,
// connect to the incoming bit stream and to attempt to reconnect if the
// stream then dies.

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// Config contains the values from the JSON config file and a
// pointer to the system log.  To support unit testing, functions
// that need to write to the log should get it from the config
// or from an argument.
type Config struct {
	Filenames     []string `json:"input"`
	Satellite     uint     `json:"satellite"`
	SerialBaud    uint     `json:"serialbaud"`
	WriteEventLog bool     `json:"writeeventlog"`
	LogDirectory  string   `json:"logdirectory"`
	MetricsPort   uint     `json:"metricsport"`
	// LostInputConnectionTimeout defines the input timeout.
	LostInputConnectionTimeout uint `json:"timeout"`
	// LostInputConnectionSleepTime is the time to sleep between connection attempts.
	LostInputConnectionSleepTime uint `json:"sleeptime"`

	// SystemLog is the Writer used for logging and can be nil.  It's not
	// supplied in the JSON.  The application should call GetJSONConfigFromFile
	// and, if there is a log writer, supply it as a parameter.
	SystemLog *log.Logger

	// logging indicates that logging should be done.
	logging bool
}

// GetJSONConfigFromFile gets the config from the file given by configName.
func GetJSONConfigFromFile(configFileName string, systemLog *log.Logger) (*Config, error) {

	jsonReader, fileErr := os.Open(configFileName)
	if fileErr != nil {
		return nil, fileErr
	}

	// There is a JSON control file.  Read and unmarshall it.
	config, jsonError := getJSONConfig(jsonReader, systemLog)
	if jsonError != nil {
		return nil, jsonError
	}

	return config, nil
}

// getJSONConfig reads from the given source and returns the config.
func getJSONConfig(jsonSource io.Reader, systemLog *log.Logger) (*Config, error) {

	jsonBytes, jsonReadError := io.ReadAll(jsonSource)
	if jsonReadError != nil {
		// We can't read the control file - permissions?
		systemLog.Printf("cannot read the JSON control file - %s\n", jsonReadError.Error())
		return nil, jsonReadError
	}

	var config Config
	// Parse the JSON control file
	jsonParseError := json.Unmarshal(jsonBytes, &config)
	if jsonParseError != nil {
		systemLog.Printf("cannot parse the JSON control file - %s\n", jsonParseError.Error())
		return nil, jsonParseError
	}

	// Set the fields that are not set by the JSON.
	config.SystemLog = systemLog
	config.logging = true

	return &config, nil
}

// WaitAndConnectToInput tries repeatedly (potentially indefinitely)
// to connect to one of the input files whose names are given.
func WaitAndConnectToInput(config *Config) io.Reader {
	for {
		reader := findInputDevice(config)
		if reader != nil {
			if config.logging {
				config.SystemLog.Println(
					"waitAndConnect: connected to bit stream source")
			}
			return reader // Success!
		}
		if config.logging {
			config.SystemLog.Println(
				"waitAndConnectToInput: failed to connect to bit stream source.  Retrying")
		}
		sleeptime := time.Duration(config.LostInputConnectionSleepTime) * time.Second
		time.Sleep(sleeptime)
	}
}

// findInputDevice searches the given list of input names.  If one of the
// named inputs exists and can be opened for reading, it returns a Reader
// connected to it.
func findInputDevice(config *Config) io.Reader {
	// Note:  the device names "/dev/ttyACM0" etc on a Raspberry Pi
	// DO NOT relate to the physical USB sockets on the circuit board.
	// They are used in turn.  After the Pi boots, the first connection
	// uses "/dev/ttyACM0".  If the front end loses power briefly, then
	// when it comes back, the connection is represented by
	// "/dev/ttyACM1", and so on, even though the USB plug is connected
	// to the same port.  So, whenever software running on the Pi needs
	// to establish a connection with a serial USB device, it needs to
	// do this search.

	for _, name := range config.Filenames {
		reader := openInput(config, name)
		if reader != nil {
			if config.logging {
				config.SystemLog.Printf("findInputDevice: found %s", name)
				// Turn off logging after the first successful scan.
				config.logging = false
			}
			return reader
		}
	}

	// None of the inputs are present.  Return nil.
	return nil
}

// openInput opens one named input.  A serial device is opened through
// the serial line driver at the configured baud rate with a read
// timeout.  Anything else (a recorded capture) is opened as a plain
// file.
func openInput(config *Config, name string) io.Reader {
	if config.SerialBaud > 0 && strings.HasPrefix(name, "/dev/") {
		durationToDeadline := time.Duration(config.LostInputConnectionTimeout) *
			time.Second
		serialConfig := serial.Config{
			Name:        name,
			Baud:        int(config.SerialBaud),
			ReadTimeout: durationToDeadline,
		}
		port, err := serial.OpenPort(&serialConfig)
		if err != nil {
			return nil
		}
		return port
	}

	file, err := os.Open(name)
	if err != nil {
		return nil
	}
	return file
}
