package logwriter

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/goblimey/go-tools/clock"
	"github.com/goblimey/go-tools/dailylogger"
	"github.com/robfig/cron"
)

// Writer satisfies the io.Writer interface and writes data (which are
// presumed to be decoded navigation records) to a log file.  It uses the
// daily logger so there is a separate log file produced each day with a
// datestamped name, for example for the 31st January 2023 the log file
// is "gnav.2023-01-31.txt".  The organisations that compare broadcast
// ephemerides against precise orbits work in whole days, so each file
// runs over no more than 24 hours.
//
// On the first write of the day the writer scans the log directory and
// pushes any files produced on other days into the subdirectory for old
// logs, creating it if necessary.  Typically files produced before
// yesterday will already have been dealt with so it will only need to
// push yesterday's log.  A cron job at midnight does the same push, so
// the day's log is tidied away promptly even when no records are
// arriving (a receiver that's lost its antenna, for example).
//
// Dates and times are in local time.
//
// It's assumed that some process watches the subdirectory and does
// sensible things when a new file appears there.

// This is a compile-time check that Writer implements the io.Writer interface.
var _ io.Writer = (*Writer)(nil)

type Writer struct {
	clock               clock.Clock         // This clock may be a fake during testing.
	logWriter           *dailylogger.Writer // The daily log writer.
	logDirectory        string              // The directory in which to create the logs.
	directoryForOldLogs string              // Old logs are pushed into this directory.
	cronjob             *cron.Cron          // Runs the push at midnight (nil during testing).

	// Components of the date of the previous write - used to detect the
	// first write of the day.
	YearOfLastWrite  int        // The four-digit year from the date of the last write.
	MonthOfLastWrite time.Month // The month from the date of the last write.
	DayOfLastWrite   int        // The two-digit (1-31) day from the date of the last write.

	mutex *sync.Mutex // Mutex - set by New.
}

// New creates a Writer with a system clock and a midnight cron job and
// returns it as an io.Writer.
func New(logDirectory, directoryForOldLogs string) io.Writer {
	var m sync.Mutex
	clock := clock.NewSystemClock() // The real system clock.
	writer := NewWriter(clock, logDirectory, directoryForOldLogs, &m)

	// Push the old logs at midnight each night, whether or not any
	// records are arriving.
	cr := cron.New()
	cr.AddFunc("0, 0, *, *, *", func() {
		writer.pushOldLogs(writer.clock.Now())
	})
	cr.Start()
	writer.cronjob = cr

	return writer
}

// NewWriter creates a Writer without the cron job and returns a pointer
// to it.  It's called by New and can be called explicitly by tests.
func NewWriter(clock clock.Clock, logDirectory, directoryForOldLogs string, mutex *sync.Mutex) *Writer {
	logWriter := dailylogger.New(logDirectory, "gnav.", ".txt")
	writer := Writer{
		clock:               clock,
		logWriter:           logWriter,
		logDirectory:        logDirectory,
		directoryForOldLogs: directoryForOldLogs,
		mutex:               mutex,
	}
	return &writer
}

// Write writes the buffer to the daily log file, creating the
// file at the start of each day.
func (writer *Writer) Write(buffer []byte) (int, error) {

	go writer.maybePush(writer.clock.Now())

	n, errWrite := writer.logWriter.Write(buffer)

	return n, errWrite
}

// maybePush pushes the old log files on the very first call and then on
// the first call of each day.  To support unit testing, the caller
// supplies the current time.
func (writer *Writer) maybePush(now time.Time) {

	todayYear := now.Year()
	todayMonth := now.Month()
	todayDay := now.Day()

	// Watch out for multiple simultaneous calls.
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	// On the very first call, writer.YearOfLastWrite will be zero
	// and todayYear will be non-zero, so this test will be true.
	if todayYear != writer.YearOfLastWrite ||
		todayMonth != writer.MonthOfLastWrite ||
		todayDay != writer.DayOfLastWrite {

		// This is the first write or the first write of a new day.
		// Update the controls and push any old log files into the
		// directory for old logs.

		writer.YearOfLastWrite = todayYear
		writer.MonthOfLastWrite = todayMonth
		writer.DayOfLastWrite = todayDay

		// Run the push in a goroutine so that we can clear the mutex
		// quickly.
		go writer.pushOldLogs(now)
	}
}

// getTodaysLogFilename gets the name of today's logfile, for example
// "gnav.2023-02-14.txt".
func getTodaysLogFilename(now time.Time) string {
	return fmt.Sprintf("gnav.%04d-%02d-%02d.txt",
		now.Year(), int(now.Month()), now.Day())
}

// pushOldLogs searches the logging directory and pushes all plain files
// except for today's log file into the subdirectory for old logs.
func (writer *Writer) pushOldLogs(now time.Time) {
	logFilename := getTodaysLogFilename(now)
	files, err := os.ReadDir(writer.logDirectory)
	if err != nil {
		log.Printf("pushOldLogs: cannot open logging directory %s - %v",
			writer.logDirectory, err)
		return
	}

	for _, fileInfo := range files {
		if fileInfo.Name() == logFilename {
			// Ignore today's log.
			continue
		}
		if fileInfo.IsDir() {
			// Ignore any directories (including the subdirectory for old logs).
			continue
		}

		writer.pushLogfile(fileInfo.Name())
	}
}

// pushLogfile takes the logFilename and pushes it into the subdirectory
// for old log files.
func (writer *Writer) pushLogfile(logFilename string) {
	// Ensure that the destination directory exists.
	err := os.MkdirAll(writer.directoryForOldLogs, os.ModePerm)
	if err != nil {
		log.Printf("pushLogfile: cannot create directory %s - %v",
			writer.directoryForOldLogs, err)
		return
	}
	logFilePath := writer.logDirectory + "/" + logFilename
	newLogFilePath := writer.directoryForOldLogs + "/" + logFilename
	err = os.Rename(logFilePath, newLogFilePath)
	if err != nil {
		log.Printf("pushLogfile - warning - failed to move logfile %s to directory %s - %v\n",
			logFilename, newLogFilePath, err)
	}
}
