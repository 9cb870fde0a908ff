package proxy

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// WalletErrors counts classified wallet call failures by operation and rc.
// The metrics handler registers it; increments are safe either way.
var WalletErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "wallet_errors_total",
	Help: "Wallet call failures by operation and remote code.",
}, []string{"op", "rc"})

func countWalletError(op string, rc int) {
	WalletErrors.WithLabelValues(op, strconv.Itoa(rc)).Inc()
}
