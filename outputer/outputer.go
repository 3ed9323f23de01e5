package outputer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gotoolkits/resetmon/event"
	"github.com/gotoolkits/resetmon/filter"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	log "github.com/sirupsen/logrus"
)

type IOutputer interface {
	PrintHeader()
	PrintLine(event.ResolvedEvent)
}

// Options carries the settings a sink may need.
type Options struct {
	Exclude string
	LogPath string

	HoneycombAPIKey  string
	HoneycombDataset string
	HoneycombAPIHost string
}

// NewOutputer returns the sink for format. Unknown formats fall back to text.
func NewOutputer(format string, opts Options) (IOutputer, error) {
	var exclude *filter.ExcludeFilter
	if opts.Exclude != "" {
		exclude = filter.ParseExcludeParam(opts.Exclude)
	}

	switch format {
	case "json":
		return newJsonOutput(os.Stdout, exclude), nil
	case "table":
		return newTableOutput(os.Stdout, exclude), nil
	case "logfile":
		return newLogFileOutput(opts.LogPath, exclude)
	case "honeycomb":
		return newHoneycombOutput(opts, exclude)
	}
	return newTextOutput(os.Stdout, exclude), nil
}

// console text outputer, one sentence per reset
type textOutput struct {
	w       io.Writer
	exclude *filter.ExcludeFilter
}

func newTextOutput(w io.Writer, exclude *filter.ExcludeFilter) IOutputer {
	return &textOutput{w: w, exclude: exclude}
}

func (t textOutput) PrintHeader() {}

func (t textOutput) PrintLine(e event.ResolvedEvent) {
	if t.exclude.ShouldExclude(e) {
		return
	}
	fmt.Fprintf(t.w, "%s:%d <-> %s:%d was reset\n", e.SourceHost, e.SourcePort, e.DestHost, e.DestPort)
}

// log file outputer
type logFileOutput struct {
	exclude *filter.ExcludeFilter
	logger  *log.Logger
}

func newLogFileOutput(logPath string, exclude *filter.ExcludeFilter) (IOutputer, error) {
	rl, err := rotatelogs.New(
		logPath+"/resetmon.log.%Y%m%d%H%M",
		rotatelogs.WithRotationTime(time.Duration(60)*time.Minute),
		rotatelogs.WithRotationCount(8),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rotating log in %s: %w", logPath, err)
	}

	logger := log.New()
	logger.SetOutput(rl)
	logger.SetFormatter(&log.JSONFormatter{})

	return &logFileOutput{
		exclude: exclude,
		logger:  logger,
	}, nil
}

func (l logFileOutput) PrintHeader() {
	// no need
}

func (l logFileOutput) PrintLine(e event.ResolvedEvent) {
	if l.exclude.ShouldExclude(e) {
		return
	}

	logF := log.Fields{
		"shost": e.SourceHost,
		"sport": strconv.FormatUint(e.SourcePort, 10),
		"saddr": e.SourceAddr,
		"dhost": e.DestHost,
		"dport": strconv.FormatUint(e.DestPort, 10),
		"daddr": e.DestAddr,
	}

	l.logger.WithFields(logF).WithTime(e.Time).Info("reset")
}

// console json outputer
type jsonOutput struct {
	w       io.Writer
	exclude *filter.ExcludeFilter
}

func newJsonOutput(w io.Writer, exclude *filter.ExcludeFilter) IOutputer {
	return &jsonOutput{w: w, exclude: exclude}
}

func (j jsonOutput) PrintHeader() {}

func (j jsonOutput) PrintLine(e event.ResolvedEvent) {
	if j.exclude.ShouldExclude(e) {
		return
	}

	jsonEvent, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(j.w, "{'ERROR':%s}\n", err)
		return
	}
	fmt.Fprintln(j.w, string(jsonEvent))
}

// console table outputer
type tableOutput struct {
	w       io.Writer
	exclude *filter.ExcludeFilter
}

func newTableOutput(w io.Writer, exclude *filter.ExcludeFilter) IOutputer {
	return &tableOutput{w: w, exclude: exclude}
}

const tableFormat = "%-9s %-42s %-42s\n"

func (t tableOutput) PrintHeader() {
	fmt.Fprintf(t.w, tableFormat, "TIME", "SOURCE", "DESTINATION")
}

func (t tableOutput) PrintLine(e event.ResolvedEvent) {
	if t.exclude.ShouldExclude(e) {
		return
	}
	src := e.SourceHost + " " + strconv.FormatUint(e.SourcePort, 10)
	dst := e.DestHost + " " + strconv.FormatUint(e.DestPort, 10)

	fmt.Fprintf(t.w, tableFormat, e.Time.Format("15:04:05"), src, dst)
}
