package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PickupsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "binwise_pickups_created_total",
		Help: "Total number of pickup requests successfully created.",
	})

	PickupsAssignedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "binwise_pickups_assigned_total",
		Help: "Total number of pickups assigned to a delivery agent.",
	})

	PickupsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "binwise_pickups_completed_total",
		Help: "Total number of pickups marked as completed.",
	})

	PickupsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "binwise_pickups_deleted_total",
		Help: "Total number of pending pickups cancelled by deletion.",
	})

	PointsAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "binwise_points_awarded_total",
		Help: "Total reward points credited to users on pickup completion.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binwise_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	PickupCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "binwise_pickup_cache_items",
		Help: "Current number of items in the active pickup cache.",
	})

	RealtimeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "binwise_realtime_sessions",
		Help: "Current number of connected realtime clients.",
	})
)
