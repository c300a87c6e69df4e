// Package embedded provides static assets compiled into the binary.
package embedded

import (
	_ "embed"
)

// DefaultStrategies is the strategy file used when none is configured:
// the ETF watchlist and the three competing strategies.
//
//go:embed strategies.yaml
var DefaultStrategies []byte
