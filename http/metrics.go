package http

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	endpointLabel = "endpoint"
	errTypeLabel  = "error_type"
)

var (
	treesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regionqt_trees_built",
		Help: "The number of region quadtrees built from images.",
	}, []string{
		endpointLabel,
	})

	treeLeaves = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "regionqt_tree_leaves",
		Help:    "The number of leaves of the trees built or decoded.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	}, []string{
		endpointLabel,
	})

	requestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regionqt_request_errors",
		Help: "The errors that occurred while handling a request.",
	}, []string{
		endpointLabel,
		errTypeLabel,
	})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "regionqt_request_latency",
		Help: "The time to handle a request, body decoding included.",
	}, []string{
		endpointLabel,
	})
)

func instrumentBuild(endpoint string, leaves int) {
	treesBuilt.With(prometheus.Labels{
		endpointLabel: endpoint,
	}).Inc()
	instrumentLeaves(endpoint, leaves)
}

func instrumentLeaves(endpoint string, leaves int) {
	treeLeaves.With(prometheus.Labels{
		endpointLabel: endpoint,
	}).Observe(float64(leaves))
}

func instrumentRequestError(endpoint string, err error) {
	requestErrors.
		With(prometheus.Labels{
			endpointLabel: endpoint,
			errTypeLabel:  errors.Type(err),
		}).
		Inc()
}

func instrumentLatency(endpoint string, start time.Time) {
	requestLatency.With(prometheus.Labels{
		endpointLabel: endpoint,
	}).Observe(time.Since(start).Seconds())
}
