// Package spec contains constants for the D2D connection performance
// benchmark: stage timeout profiles, radio PHY rate tables and the
// thresholds applied by the verdict aggregator.
package spec

import "time"

const (
	// AgentPath is the websocket endpoint exposed by the on-device agent.
	AgentPath = "/betocq/v1/agent"

	// SecWebSocketProtocol is the value of the Sec-WebSocket-Protocol header
	// expected by the device agent.
	SecWebSocketProtocol = "com.google.betocq.v1"
)

// Timeouts of the first connection attempt in a test iteration. The first
// attempt includes BLE scanning from a cold start, which is slow.
const (
	FirstDiscoveryTimeout        = 30 * time.Second
	FirstConnectionInitTimeout   = 30 * time.Second
	FirstConnectionResultTimeout = 35 * time.Second
)

// Timeouts of a connection attempt made while a prior connection already
// exists. Discovery may take longer because the radio is busy, while the
// connection itself is expected to complete faster.
const (
	SecondDiscoveryTimeout        = 35 * time.Second
	SecondConnectionInitTimeout   = 10 * time.Second
	SecondConnectionResultTimeout = 25 * time.Second
)

// ConnectionSetupTimeouts is the timeout profile of one connection attempt.
type ConnectionSetupTimeouts struct {
	Discovery        time.Duration
	ConnectionInit   time.Duration
	ConnectionResult time.Duration
}

// FirstConnectionTimeouts returns the timeout profile of a first connection
// attempt.
func FirstConnectionTimeouts() ConnectionSetupTimeouts {
	return ConnectionSetupTimeouts{
		Discovery:        FirstDiscoveryTimeout,
		ConnectionInit:   FirstConnectionInitTimeout,
		ConnectionResult: FirstConnectionResultTimeout,
	}
}

// SecondConnectionTimeouts returns the timeout profile used when a prior
// connection is already established.
func SecondConnectionTimeouts() ConnectionSetupTimeouts {
	return ConnectionSetupTimeouts{
		Discovery:        SecondDiscoveryTimeout,
		ConnectionInit:   SecondConnectionInitTimeout,
		ConnectionResult: SecondConnectionResultTimeout,
	}
}

// Per-stream maximum PHY rates, by channel width class.
const (
	// MaxPhyRatePerStreamN20Mbps is the per-stream PHY rate of an 802.11n
	// 20 MHz channel (2.4 GHz D2D mediums).
	MaxPhyRatePerStreamN20Mbps = 72

	// MaxPhyRatePerStreamAC40Mbps is the per-stream PHY rate of an 802.11ac
	// 40 MHz channel.
	MaxPhyRatePerStreamAC40Mbps = 200

	// MaxPhyRatePerStreamAC80Mbps is the per-stream PHY rate of an 802.11ac
	// 80 MHz channel.
	MaxPhyRatePerStreamAC80Mbps = 433
)

// Ratios between the maximum PHY rate and the minimum acceptable throughput.
// These account for protocol overhead and the distance between devices on a
// test rig.
const (
	MaxPhyRateToMinThroughputRatio2G = 0.25
	MaxPhyRateToMinThroughputRatio5G = 0.37
)

const (
	// MCCThroughputMultiplier is applied when the scenario forces
	// multi-channel concurrency: the radio time-slices between the STA and
	// the D2D channel.
	MCCThroughputMultiplier = 0.25

	// WifiHotspotThroughputMultiplier is applied when the negotiated upgrade
	// medium is Wi-Fi Hotspot, which carries more overhead than Wi-Fi Direct.
	WifiHotspotThroughputMultiplier = 0.8

	// WifiLanThroughputCapMBps caps the benchmark when the negotiated medium
	// is Wi-Fi LAN, where the AP forwarding path limits the transfer rate
	// regardless of the D2D link budget.
	WifiLanThroughputCapMBps = 40
)

const (
	// TransferFileSize500MB is the default payload size of a Wi-Fi transfer.
	TransferFileSize500MB = 500 * 1024 * 1024

	// Wifi500MPayloadTransferTimeout bounds the transfer of the 500 MB
	// payload over any Wi-Fi medium.
	Wifi500MPayloadTransferTimeout = 400 * time.Second

	// BT500KPayloadTransferTimeout bounds the transfer of a small payload
	// over a Bluetooth-only connection.
	BT500KPayloadTransferTimeout = 100 * time.Second

	// TransferFileSize500KB is the payload size used on Bluetooth-only
	// mediums.
	TransferFileSize500KB = 500 * 1024
)

const (
	// DelayBetweenIterations lets the device radios settle between
	// consecutive test iterations.
	DelayBetweenIterations = 5 * time.Second

	// SuccessRateTarget is the fraction of iterations that must succeed for
	// the run to pass. The threshold is non-strict: ties pass.
	SuccessRateTarget = 0.8

	// Percentile50Factor is the fractional index used for the median of a
	// sorted latency or throughput series.
	Percentile50Factor = 0.5

	// LatencyPrecisionDigits is the number of decimal digits kept when
	// reporting latencies in seconds.
	LatencyPrecisionDigits = 1
)

// Wi-Fi STA association retry parameters for ConnectToWifiStaTillSuccess.
const (
	WifiStaConnectionAttempts = 3

	MinWifiStaRetryInterval = 2 * time.Second
	AvgWifiStaRetryInterval = 4 * time.Second
	MaxWifiStaRetryInterval = 8 * time.Second

	WifiStaConnectionTimeout = 25 * time.Second
)

// KeepAliveParams are the keep-alive settings requested for the primary
// connection under test.
type KeepAliveParams struct {
	Timeout  time.Duration
	Interval time.Duration
}

// DefaultKeepAlive returns the default keep-alive settings.
func DefaultKeepAlive() KeepAliveParams {
	return KeepAliveParams{
		Timeout:  30 * time.Second,
		Interval: 5 * time.Second,
	}
}
