package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Action names used in logs, spans and metric labels.
const (
	actionFetchItems = "fetch_items"
	actionGetItem    = "get_item"
	actionAddItem    = "add_item"
	actionUpdateItem = "update_item"
	actionDeleteItem = "delete_item"
)

// Prometheus metrics.
var (
	storeActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_store_actions_total",
			Help: "Total number of inventory store dispatch actions",
		},
		[]string{"action", "result"},
	)

	storeActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_store_action_duration_seconds",
			Help:    "Inventory store dispatch action duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	storeItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_store_items",
			Help: "Number of items held in the inventory store cache",
		},
	)

	storeActionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_store_actions_in_flight",
			Help: "Number of inventory store dispatch actions awaiting the remote",
		},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
