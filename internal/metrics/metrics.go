package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Decoder metrics
var (
	LogsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "decoder_logs_processed_total",
		Help: "The total number of receipt logs run through the decoder",
	})

	LogsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "decoder_logs_dropped_total",
		Help: "The total number of logs no registered contract could decode",
	})

	EventsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decoder_events_decoded_total",
		Help: "The total number of decoded events by contract and hero flag",
	}, []string{"contract", "hero"})
)

// Replay metrics
var (
	StepsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_steps_written_total",
		Help: "The total number of enriched steps written to the sink",
	})

	LastReplayedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "replay_last_replayed_block",
		Help: "The last block fully replayed",
	})

	RPCRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_rpc_retries_total",
		Help: "The number of retried RPC calls by operation",
	}, []string{"op"})
)

// Serve exposes /metrics on addr in the background. An empty addr disables it.
func Serve(addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("metrics server start", zap.String("addr", addr))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
}
