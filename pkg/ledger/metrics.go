package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheusメトリクス定義

var (
	// operationsTotal counts ledger operations by operation and outcome
	// 操作別・結果別の台帳操作数
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zailedger",
		Name:      "operations_total",
		Help:      "Total number of ledger operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// reservationsRejected counts reservation attempts turned away and why
	// 拒否された予約試行数
	reservationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zailedger",
		Name:      "reservations_rejected_total",
		Help:      "Total number of rejected reservation attempts by reason.",
	}, []string{"reason"})

	// versionConflicts counts optimistic-lock retries by operation
	// 楽観的ロック競合による再試行数
	versionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zailedger",
		Name:      "version_conflicts_total",
		Help:      "Total number of optimistic locking conflicts by operation.",
	}, []string{"operation"})
)
