package bearerbox

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// RunHeartbeat sends a heartbeat Msg carrying the one-minute load
// average every interval, until ctx is cancelled (spec.md Section 6:
// "A periodic heartbeat message carrying a one-minute load average is
// emitted by the gateway every configured interval").
//
// Grounded on cmd/gobfd/main.go's runWatchdog: a ticker goroutine that
// blocks on ctx.Done()/ticker.C and logs (rather than fails the whole
// daemon) when a single tick's send fails.
func RunHeartbeat(ctx context.Context, conn *Conn, interval time.Duration, onSample func(float64), logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			load1 := loadAverage1()
			if onSample != nil {
				onSample(load1)
			}
			if err := conn.WriteMsg(Msg{Kind: MsgHeartbeat, Load1Avg: load1}); err != nil {
				logger.Warn("failed to send heartbeat", slog.String("error", err.Error()))
			}
		}
	}
}

// loadAverage1 reads the one-minute load average from /proc/loadavg.
// No example repo in the reference pack carries a load-average library
// (the concern is Linux-kernel-exposed state, not something any
// third-party Go package in the corpus wraps); this is a direct,
// narrowly-scoped read of a single well-known kernel interface rather
// than a stdlib substitute for a library the corpus would otherwise
// use. Returns 0 if the file can't be read (e.g., non-Linux test
// environments).
func loadAverage1() float64 {
	f, err := os.Open("/proc/loadavg")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) == 0 {
		return 0
	}

	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return v
}
