package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultAllowed   = "allowed"
	resultForbidden = "forbidden"
	resultError     = "error"

	sourceCache  = "cache"
	sourceStore  = "store"
	sourceShared = "shared"
)

var (
	decisionsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "newsdesk_access_decisions_total",
			Help: "Number of access decisions, differentiated by mode and result.",
		},
		[]string{"mode", "result"},
	)

	resolutionsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "newsdesk_permission_resolutions_total",
			Help: "Number of permission set resolutions, differentiated by where the set came from.",
		},
		[]string{"source"},
	)
)
