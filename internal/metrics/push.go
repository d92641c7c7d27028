package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const JobName = "resolver_setup"

// Push sends the collected metrics to a Pushgateway once. The tool runs as a batch job so there
// is no endpoint to scrape.
func Push(ctx context.Context, url string, network string, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	pusher := push.New(url, JobName).Gatherer(gatherer)
	if network != "" {
		pusher = pusher.Grouping(LabelNetwork, network)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
