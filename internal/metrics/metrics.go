package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	ReadingsEmitted       atomic.Int64
	StatisticsRuns        atomic.Int64
	ThresholdAlerts       atomic.Int64
	VariationAlerts       atomic.Int64
	AlertPublishFailures  atomic.Int64
	DBWriteSuccess        atomic.Int64
	DBWriteFailures       atomic.Int64
	DBChannelDrops        atomic.Int64
	AlertChannelDrops     atomic.Int64
	StateWriteFailures    atomic.Int64
	StreamClients         atomic.Int64
	StreamMessagesDropped atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "monitor_readings_emitted_total %d\n", ReadingsEmitted.Load())
	fmt.Fprintf(w, "monitor_statistics_runs_total %d\n", StatisticsRuns.Load())
	fmt.Fprintf(w, "monitor_threshold_alerts_total %d\n", ThresholdAlerts.Load())
	fmt.Fprintf(w, "monitor_variation_alerts_total %d\n", VariationAlerts.Load())
	fmt.Fprintf(w, "monitor_alert_publish_failures_total %d\n", AlertPublishFailures.Load())
	fmt.Fprintf(w, "monitor_db_write_success_total %d\n", DBWriteSuccess.Load())
	fmt.Fprintf(w, "monitor_db_write_failures_total %d\n", DBWriteFailures.Load())
	fmt.Fprintf(w, "monitor_db_channel_drops_total %d\n", DBChannelDrops.Load())
	fmt.Fprintf(w, "monitor_alert_channel_drops_total %d\n", AlertChannelDrops.Load())
	fmt.Fprintf(w, "monitor_state_write_failures_total %d\n", StateWriteFailures.Load())
	fmt.Fprintf(w, "monitor_stream_clients %d\n", StreamClients.Load())
	fmt.Fprintf(w, "monitor_stream_messages_dropped_total %d\n", StreamMessagesDropped.Load())
}
