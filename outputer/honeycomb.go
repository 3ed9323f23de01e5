package outputer

import (
	"github.com/gotoolkits/resetmon/event"
	"github.com/gotoolkits/resetmon/filter"

	"github.com/honeycombio/libhoney-go"
	log "github.com/sirupsen/logrus"
)

// honeycomb outputer, one libhoney event per reset
type honeycombOutput struct {
	exclude *filter.ExcludeFilter
}

// newHoneycombOutput initializes libhoney from opts. libhoney keeps its
// client globally, so only one honeycomb outputer should exist at a time.
func newHoneycombOutput(opts Options, exclude *filter.ExcludeFilter) (IOutputer, error) {
	err := libhoney.Init(libhoney.Config{
		APIKey:  opts.HoneycombAPIKey,
		Dataset: opts.HoneycombDataset,
		APIHost: opts.HoneycombAPIHost,
	})
	if err != nil {
		return nil, err
	}
	return &honeycombOutput{exclude: exclude}, nil
}

func (h honeycombOutput) PrintHeader() {}

func (h honeycombOutput) PrintLine(e event.ResolvedEvent) {
	if h.exclude.ShouldExclude(e) {
		return
	}

	ev := libhoney.NewEvent()
	if !e.Time.IsZero() {
		ev.Timestamp = e.Time
	}
	ev.AddField("name", "tcp reset")
	ev.AddField("source.address", e.SourceHost)
	ev.AddField("source.port", e.SourcePort)
	ev.AddField("source.ip", e.SourceAddr)
	ev.AddField("destination.address", e.DestHost)
	ev.AddField("destination.port", e.DestPort)
	ev.AddField("destination.ip", e.DestAddr)

	if err := ev.Send(); err != nil {
		log.WithError(err).Debug("error sending event")
	}
}

// Close flushes pending honeycomb events.
func (h honeycombOutput) Close() {
	libhoney.Close()
}
