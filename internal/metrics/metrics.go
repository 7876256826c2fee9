package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailreward_submissions_accepted_total",
		Help: "Accepted credential submissions.",
	})

	SubmissionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailreward_submissions_rejected_total",
		Help: "Rejected credential submissions by reason.",
	}, []string{"reason"})

	WithdrawalsRequested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailreward_withdrawals_requested_total",
		Help: "Withdrawal requests that reached pending state.",
	})

	WithdrawalsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailreward_withdrawals_decided_total",
		Help: "Admin withdrawal decisions by outcome.",
	}, []string{"decision"})
)
