package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChainHead tracks the latest head observed from any transport
	ChainHead = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jackpot_chain_head_block",
			Help: "Latest block number observed on chain",
		},
	)

	// Checkpoint tracks the last fully projected block
	Checkpoint = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jackpot_indexer_checkpoint_block",
			Help: "Last block whose logs are fully projected",
		},
	)

	// Phase is 0 while backfilling and 1 while tailing
	Phase = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jackpot_indexer_tailing",
			Help: "Whether the indexer has switched to tail mode",
		},
	)

	// RangesProcessed counts processed block ranges
	RangesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jackpot_indexer_ranges_total",
			Help: "Total number of block ranges processed",
		},
		[]string{"mode", "result"},
	)

	// RangeDuration tracks how long a block range takes end to end
	RangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jackpot_indexer_range_duration_seconds",
			Help:    "Block range processing latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// EventsProjected counts projected events per event name
	EventsProjected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jackpot_indexer_events_total",
			Help: "Total number of decoded events applied to the projection",
		},
		[]string{"event"},
	)

	// LogErrors counts logs skipped because they failed to decode or project
	LogErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jackpot_indexer_log_errors_total",
			Help: "Total number of logs skipped after an error",
		},
		[]string{"stage"},
	)

	// KnownPools tracks the number of pools whose logs are followed
	KnownPools = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jackpot_indexer_known_pools",
			Help: "Number of pool contracts being indexed",
		},
	)

	// RPCRetries counts retried chain requests
	RPCRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jackpot_rpc_retries_total",
			Help: "Total number of retried RPC requests",
		},
		[]string{"op"},
	)

	// HeadReconnects counts push transport reconnects
	HeadReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jackpot_head_feed_reconnects_total",
			Help: "Total number of head subscription reconnects",
		},
	)

	// HeadFeedConnected is 1 while a head subscription is established
	HeadFeedConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jackpot_head_feed_connected",
			Help: "Whether the head subscription is currently connected",
		},
	)

	// RelayerActions counts confirmed relayer transactions per action
	RelayerActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jackpot_relayer_actions_total",
			Help: "Total number of confirmed relayer transactions",
		},
		[]string{"action"},
	)

	// RelayerErrors counts per-pool relayer failures
	RelayerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jackpot_relayer_errors_total",
			Help: "Total number of relayer pool evaluations that failed",
		},
		[]string{"stage"},
	)
)
