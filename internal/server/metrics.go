package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peerpay_transfers_total",
		Help: "Completed and rejected transfer attempts",
	}, []string{"outcome"})

	bonusClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peerpay_bonus_claims_total",
		Help: "Bonus claim attempts by outcome",
	}, []string{"outcome"})

	riskRecomputationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peerpay_risk_recomputations_total",
		Help: "Explicit risk score recomputations served over HTTP",
	})
)
