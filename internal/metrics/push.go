package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job name used when none is configured.
const DefaultJob = "archivesync"

// Push sends every metric in gatherer to the Pushgateway at url, grouped by
// the given labels. A one-shot sync exits before any scrape could happen,
// so the process pushes once at the end of a run instead of serving /metrics.
func Push(ctx context.Context, url, job string, gatherer prometheus.Gatherer, grouping map[string]string) error {
	if job == "" {
		job = DefaultJob
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	pusher := push.New(url, job).Gatherer(gatherer)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}
	if err := pusher.AddContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
