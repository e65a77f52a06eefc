package snippet

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/memoryless"
	"github.com/m-lab/go/rtx"

	"github.com/betocq/betocq/pkg/nc/spec"
)

type wifiStaParams struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// ConnectToWifiSta makes one attempt to associate the device with the given
// network.
func (c *Client) ConnectToWifiSta(ctx context.Context, ssid, password string) error {
	attempt, cancel := context.WithTimeout(ctx, spec.WifiStaConnectionTimeout)
	defer cancel()
	return c.Call(attempt, "wifiConnectSta", wifiStaParams{SSID: ssid, Password: password}, nil)
}

// wifiRetryConfig paces the STA association retry loop.
var wifiRetryConfig = memoryless.Config{
	Min:      spec.MinWifiStaRetryInterval,
	Expected: spec.AvgWifiStaRetryInterval,
	Max:      spec.MaxWifiStaRetryInterval,
}

// ConnectToWifiStaTillSuccess retries Wi-Fi STA association until it
// succeeds or the attempt budget is exhausted. Retries are paced by a
// memoryless ticker so that repeated runs don't synchronize with periodic
// scans on the device. It returns the total association latency.
func (c *Client) ConnectToWifiStaTillSuccess(ctx context.Context, ssid, password string) (time.Duration, error) {
	t, err := memoryless.NewTicker(ctx, wifiRetryConfig)
	// This can only error if min/expected/max above are set to invalid
	// values. Since they are constants, we panic here.
	rtx.PanicOnError(err, "ticker creation failed (this should never happen)")
	defer t.Stop()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= spec.WifiStaConnectionAttempts; attempt++ {
		lastErr = c.ConnectToWifiSta(ctx, ssid, password)
		if lastErr == nil {
			latency := time.Since(start)
			log.Info("wifi STA associated", "serial", c.serial, "ssid", ssid,
				"attempt", attempt, "latency", latency)
			return latency, nil
		}
		log.Warn("wifi STA association failed", "serial", c.serial, "ssid", ssid,
			"attempt", attempt, "error", lastErr)
		if attempt == spec.WifiStaConnectionAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
	}
	return 0, fmt.Errorf("connecting %s to %q after %d attempts: %w",
		c.serial, ssid, spec.WifiStaConnectionAttempts, lastErr)
}
