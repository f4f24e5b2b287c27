// The gnavlogger reads the navigation bit stream of one GLONASS
// satellite from a tracking front end (a serial USB device or a
// recorded capture file), decodes it and writes the decoded records -
// ephemerides, almanac entries and time updates - to standard output
// and, if the JSON config file sets "writeeventlog" true, to a daily
// record file.  The names of the record files contain a datestamp and
// roll over each day; old files are pushed into a subdirectory so that
// a watching process can pick them up, for example to compare the
// broadcast orbits against precise products.  If the program dies
// during the day and is restarted, it picks up the existing file and
// appends to it, so the existing records are preserved.
//
// The program also maintains a daily event log, where runtime problems
// are reported, and serves prometheus metrics (strings decoded,
// checksum failures, sync losses and so on, per satellite) over HTTP
// if the config gives a metrics port.
//
// If the input connection dies the program repeatedly scans the
// configured device list and carries on when the connection comes
// back.  The receiver-wide time state survives the reconnect, so
// ephemerides decoded after it still resolve to absolute time.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/goblimey/go-tools/dailylogger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/goblimey/go-gnav/apps/gnavlogger/logwriter"
	filehandler "github.com/goblimey/go-gnav/file_handler"
	gnav "github.com/goblimey/go-gnav/gnav/handler"
	"github.com/goblimey/go-gnav/gnav/gnavtime"
	"github.com/goblimey/go-gnav/gnav/utils"
	"github.com/goblimey/go-gnav/jsonconfig"
)

// eventLogger writes to the daily event log.
var eventLogger *slog.Logger

func main() {

	// First get the config.  This defines the name and location of the
	// system log (if any) so until we have it, we log any errors to stderr.

	// Get the name of the config file (mandatory).
	var configFileName string
	pflag.StringVarP(&configFileName, "config", "c", "", "JSON config file")
	pflag.Parse()

	if len(configFileName) == 0 {
		os.Stderr.Write([]byte("missing config file: -c or --config\n"))
		os.Exit(-1)
	}

	// The config errors are logged to the daily event log.
	systemLog := utils.GetDailyLogger(".", "gnavlogger")

	// Get the config.
	cfg, errConfig := jsonconfig.GetJSONConfigFromFile(configFileName, systemLog)

	if errConfig != nil {
		os.Stderr.Write([]byte(errConfig.Error()))
		os.Exit(-1)
	}

	// The directory in which to write the record files is defined in
	// the JSON config file, or "." by default.
	if len(cfg.LogDirectory) == 0 {
		cfg.LogDirectory = "."
	}

	// Create the event logger.  It uses structured logging and switches
	// to a new file each day with a datestamped name.
	dailyEventLogger := dailylogger.New(cfg.LogDirectory, "gnavlogger.", ".log")
	eventLogger = slog.New(slog.NewTextHandler(dailyEventLogger, nil))

	// Serve the decode counters if the config gives a port.
	if cfg.MetricsPort > 0 {
		go serveMetrics(cfg.MetricsPort)
	}

	start(cfg)
}

// serveMetrics serves the prometheus counters over HTTP.
func serveMetrics(port uint) {
	http.Handle("/metrics", promhttp.Handler())
	address := fmt.Sprintf(":%d", port)
	err := http.ListenAndServe(address, nil)
	if err != nil {
		eventLogger.Error(fmt.Sprintf("metrics server failed - %v", err))
	}
}

// start kicks off the recorder and then decodes the input, reconnecting
// whenever the connection dies.  It runs until the process is killed
// (or, if the input is a completed capture file and the timeout is
// zero, until the file is exhausted).
func start(cfg *jsonconfig.Config) {

	// The recorder writes the decoded records to the daily record file
	// and runs until recorderChannel is closed.  The defer ensures that
	// this happens as this function ends.
	recorderChannel := make(chan []byte)
	defer close(recorderChannel)
	if cfg.WriteEventLog {
		recordWriter := logwriter.New(cfg.LogDirectory, cfg.LogDirectory+"/old_logs")
		go recorder(recorderChannel, recordWriter)
	} else {
		go discard(recorderChannel)
	}

	// The time state survives reconnects, so it's created once out here.
	timeStore := gnavtime.NewStore()

	retryInterval := time.Duration(cfg.LostInputConnectionSleepTime) * time.Second
	eofTimeout := time.Duration(cfg.LostInputConnectionTimeout) * time.Second

	for {
		// Find the input - this spins until one of the configured
		// devices or files turns up.
		reader := jsonconfig.WaitAndConnectToInput(cfg)

		eventLogger.Info("connected to input")

		eventChan := make(chan gnav.Event, 10)
		handler := filehandler.New(cfg.Satellite, timeStore, eventChan,
			retryInterval, eofTimeout, slog.LevelInfo)
		go handler.Handle(context.Background(), time.Now(), bufio.NewReader(reader))

		// Consume events until the handler stops (it closes the event
		// channel when the input dies).
		writeEvents(eventChan, recorderChannel, os.Stdout)

		eventLogger.Info("input connection lost - reconnecting")

		if eofTimeout == 0 {
			// A zero timeout means the input was a completed capture
			// file.  We've processed it, so we're done.
			return
		}
	}
}

// writeEvents receives decoded events, displays each on the writer and
// sends a copy to the recorder.  It returns when the event channel is
// closed.
func writeEvents(eventChan chan gnav.Event, recorderChannel chan []byte, writer io.Writer) {
	for {
		event, ok := <-eventChan
		if !ok {
			return
		}

		display := []byte(event.String() + "\n")

		_, errWrite := writer.Write(display)
		if errWrite != nil {
			eventLogger.Error(fmt.Sprintf("write failed - %v", errWrite))
		}

		recorderChannel <- display
	}
}

// recorder loops, reading buffers from the channel and writing them
// to the daily record file.
func recorder(recorderChannel chan []byte, writer io.Writer) {

	if writer == nil {
		eventLogger.Error("internal error - writer is nil")
		return
	}

	// Receive and write records until recorderChannel is closed.
	for {
		buffer, ok := <-recorderChannel
		if !ok {
			// We're done!
			break
		}

		n, err := writer.Write(buffer)
		if err != nil {
			eventLogger.Error(
				fmt.Sprintf("write to daily record file failed - %v", err))
			continue
		}
		if n != len(buffer) {
			eventLogger.Error(fmt.Sprintf(
				"warning: only wrote %d of %d bytes to the daily record file",
				n, len(buffer)))
		}
	}
}

// discard consumes and drops the records when recording is disabled.
func discard(recorderChannel chan []byte) {
	for range recorderChannel {
	}
}
