package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	secretTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dide_totp_secret_transitions_total",
		Help: "TOTP secret state transitions, by target state and path.",
	}, []string{"to", "path"})

	encryptFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dide_totp_encrypt_failures_total",
		Help: "Failed plaintext to encrypted transitions, by path.",
	}, []string{"path"})

	totpVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dide_totp_verifications_total",
		Help: "TOTP code checks at login, by result.",
	}, []string{"result"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dide_totp_sweep_duration_seconds",
		Help:    "Wall time of a full plaintext secret sweep.",
		Buckets: prometheus.DefBuckets,
	})
)
