// gnavdisplay reads a recorded GLONASS L1 C/A navigation bit stream
// from a file (or from stdin) and writes a readable version of the
// decoded results to the standard output channel.
//
// The input is the output of a tracking front end: the demodulated
// navigation bits of one satellite, packed eight to a byte, most
// significant bit first.  The navigation message is a tightly packed
// binary format defined by the GLONASS Interface Control Document and
// not designed to be readable by a human.  The satellite sends a string
// of 115 bits every two seconds.  Strings 1 to 4 of each frame carry
// the satellite's own orbit and clock data (the ephemeris), string 5
// carries the date fields that pin the times to a calendar, and the
// rest of the frame carries a few satellites' worth of the almanac -
// the rough orbits of the whole constellation, spread over a
// 150-second superframe.
//
// The tool displays each decoded result as it completes.  For example:
//
//	ephemeris: satellite 3, t_b 45 (40500 sec of day),
//	position (11134.674805, -6946.455078, 21455.626953) km
//
//	time state: N_4 7, N_T 100, tau_c -9.9E-05 s
//
// The tool is useful for trouble-shooting, particularly when you have
// a misbehaving receiver channel and you are trying to figure out what
// it's tracking.  You can see whether the channel ever finds the time
// marks, whether the strings pass their checksums, and what data they
// carry.
//
// Usage:
//
//	gnavdisplay [options] file yyyy-mm-dd
//
// Examples:
//
//	gnavdisplay -s 3 capture.bits 2023-05-12
//
//	gnavdisplay -s 3 - 2023-05-12   # take input from the standard input channel.
//
// The file argument names a recorded capture.  The date argument gives
// the receiver time at the start of the recording, in the format
// "yyyy-mm-dd" (midnight UTC) or RFC 3339.  The bits arrived at a fixed
// 50 per second, so the time of every string follows from the start
// time.  The --satellite option gives the slot number of the satellite
// that the recorded channel was tracking, which is echoed in the
// displayed events (the data itself also carries the slot number, in
// string 4, so a mismatch shows up quickly).
package main

import (
	"bufio"
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	filehandler "github.com/goblimey/go-gnav/file_handler"
	gnav "github.com/goblimey/go-gnav/gnav/handler"
	"github.com/goblimey/go-gnav/gnav/gnavtime"
)

func main() {

	satellite := pflag.UintP("satellite", "s", 1,
		"slot number of the satellite the recorded channel was tracking")
	verbose := pflag.BoolP("verbose", "v", false,
		"display every field of every decoded result")
	pflag.Parse()

	appName := os.Args[0]
	args := pflag.Args()
	if len(args) < 2 {
		log.Fatalf("usage: %s [options] file yyyy-mm-dd", appName)
	}

	// The format of args[1] should be yyyy-mm-dd.  args[0] is a file
	// containing the recorded bit stream.
	startTime, timeError := getTime(args[1])
	if timeError != nil {
		log.Printf("usage: %s [options] file yyyy-mm-dd", appName)
		log.Fatalf(timeError.Error())
	}

	fileName := args[0]
	reader, openError := openFile(fileName)
	if openError != nil {
		log.Fatalf("%s: cannot open %s - %v", appName, fileName, openError)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	HandleBits(*satellite, logLevel, startTime, reader, os.Stdout)

	os.Exit(0)
}

// HandleBits runs a decoder over the bit stream from the reader and
// writes the decoded events to the writer.  It returns when the input
// is exhausted.
func HandleBits(satellite uint, logLevel slog.Level, startTime time.Time,
	reader io.Reader, writer io.Writer) {

	bufferedReader := bufio.NewReader(reader)

	// A zero EOF timeout causes the handler to stop when the input
	// file is exhausted, which closes the event channel.
	eventChan := make(chan gnav.Event, 2)
	handler := filehandler.New(satellite, gnavtime.NewStore(), eventChan,
		0, 0, logLevel)
	go handler.Handle(context.Background(), startTime, bufferedReader)

	DisplayEvents(eventChan, writer)
}

// DisplayEvents receives decoded events from the given channel,
// produces a readable display of each and writes them to the writer.
func DisplayEvents(eventChan chan gnav.Event, writer io.Writer) error {
	for {
		event, ok := <-eventChan
		if !ok {
			return nil
		}
		display := event.String() + "\n"
		_, writeError := writer.Write([]byte(display))
		if writeError != nil {
			return writeError
		}
	}
}

// getTime gets a time from a string in one of two formats,
// "yyyy-mm-dd" (midnight UTC on that day) or RFC 3339.
func getTime(timeStr string) (time.Time, error) {
	const dateLayout = "2006-01-02"

	if len(dateLayout) == len(timeStr) {
		dateTime, err := time.Parse(dateLayout, timeStr)
		return dateTime, err
	} else {
		dateTime, err := time.Parse(time.RFC3339, timeStr)
		return dateTime, err
	}
}

// openFile opens the given file and returns a Reader connected
// to it.  If the file name is "-" it returns os.Stdin
func openFile(fileName string) (io.Reader, error) {
	if fileName == "-" {
		return os.Stdin, nil
	}

	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}

	return file, nil
}
