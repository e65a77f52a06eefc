// Package model contains the data model of the D2D performance benchmark:
// medium and failure-reason enumerations, per-iteration results, the
// run-level metrics accumulator and the archival records written to disk.
package model

import (
	"fmt"
	"time"
)

// QualityInfo is the telemetry of one connection-session attempt. It is
// owned by the session that produced it and copied into SingleTestResult.
type QualityInfo struct {
	// DiscoveryLatency is the time from starting discovery to finding the
	// advertiser.
	DiscoveryLatency NullDuration

	// ConnectionLatency is the time from requesting the connection to both
	// sides accepting it.
	ConnectionLatency NullDuration

	// MediumUpgradeLatency is the time spent upgrading to the requested
	// medium. Only meaningful when MediumUpgradeExpected is true.
	MediumUpgradeLatency NullDuration

	// UpgradeMedium is the medium actually carrying payloads after the
	// upgrade finished.
	UpgradeMedium ConnectionMedium

	// MediumUpgradeExpected reports whether the session was configured to
	// attempt a medium upgrade.
	MediumUpgradeExpected bool
}

// Lines renders the quality info as key: value report lines.
func (q QualityInfo) Lines() []string {
	lines := []string{
		fmt.Sprintf("discovery_latency: %.1fs", durationOrNegative(q.DiscoveryLatency)),
		fmt.Sprintf("connection_latency: %.1fs", durationOrNegative(q.ConnectionLatency)),
	}
	if q.MediumUpgradeExpected {
		lines = append(lines,
			fmt.Sprintf("medium_upgrade_latency: %.1fs", durationOrNegative(q.MediumUpgradeLatency)),
			fmt.Sprintf("upgrade_medium: %s", q.UpgradeMedium),
		)
	}
	return lines
}

func durationOrNegative(d NullDuration) float64 {
	if !d.Valid {
		return -1
	}
	return d.Seconds()
}

// SingleTestResult is the outcome of one benchmark iteration. It is created
// fresh at the start of the iteration, mutated only by the driver while the
// iteration runs, and immutable once appended to the run's result list.
type SingleTestResult struct {
	TestIteration int

	FailureReason FailureReason

	ResultMessage string

	// DiscovererStaExpected and DiscovererStaLatency record the discoverer's
	// Wi-Fi STA association, when the scenario supplies an SSID.
	DiscovererStaExpected bool
	DiscovererStaLatency  NullDuration

	// AdvertiserStaExpected and AdvertiserStaLatency record the advertiser's
	// Wi-Fi STA association.
	AdvertiserStaExpected bool
	AdvertiserStaLatency  NullDuration

	// PriorBTQuality is the telemetry of the prior Bluetooth connection, nil
	// when the scenario does not multiplex over BT.
	PriorBTQuality *QualityInfo

	// TransferQuality is the telemetry of the primary connection used for
	// the file transfer.
	TransferQuality QualityInfo

	// TransferThroughput is the measured file-transfer throughput.
	TransferThroughput NullKBps

	// FailedWithPriorBT marks iterations whose recorded failure reason comes
	// from the prior Bluetooth phase.
	FailedWithPriorBT bool
}

// PerformanceTestMetrics is the run-level accumulator. Every sequence holds
// one entry per completed iteration, except MediumUpgradeLatencies which only
// collects iterations where an upgrade was expected. Appended to by the
// single driver goroutine after each iteration's teardown.
type PerformanceTestMetrics struct {
	PriorBTDiscoveryLatencies  []NullDuration
	PriorBTConnectionLatencies []NullDuration

	TransferDiscoveryLatencies  []NullDuration
	TransferConnectionLatencies []NullDuration
	MediumUpgradeLatencies      []NullDuration
	UpgradedTransferMediums     []ConnectionMedium

	TransferThroughputsKBps []NullKBps

	DiscovererStaLatencies []NullDuration
	AdvertiserStaLatencies []NullDuration
}

// Record appends the iteration's measurements to the accumulator.
// usePriorBT selects whether the prior-BT series are recorded.
func (m *PerformanceTestMetrics) Record(r *SingleTestResult, usePriorBT bool) {
	if usePriorBT && r.PriorBTQuality != nil {
		m.PriorBTDiscoveryLatencies = append(m.PriorBTDiscoveryLatencies, r.PriorBTQuality.DiscoveryLatency)
		m.PriorBTConnectionLatencies = append(m.PriorBTConnectionLatencies, r.PriorBTQuality.ConnectionLatency)
	}
	m.TransferDiscoveryLatencies = append(m.TransferDiscoveryLatencies, r.TransferQuality.DiscoveryLatency)
	m.TransferConnectionLatencies = append(m.TransferConnectionLatencies, r.TransferQuality.ConnectionLatency)
	m.UpgradedTransferMediums = append(m.UpgradedTransferMediums, r.TransferQuality.UpgradeMedium)
	m.TransferThroughputsKBps = append(m.TransferThroughputsKBps, r.TransferThroughput)
	m.DiscovererStaLatencies = append(m.DiscovererStaLatencies, r.DiscovererStaLatency)
	m.AdvertiserStaLatencies = append(m.AdvertiserStaLatencies, r.AdvertiserStaLatency)
	if r.TransferQuality.MediumUpgradeExpected {
		m.MediumUpgradeLatencies = append(m.MediumUpgradeLatencies, r.TransferQuality.MediumUpgradeLatency)
	}
}

// ResultStats is the derived percentile summary of one measurement series.
type ResultStats struct {
	SuccessCount int
	Min          float64
	Median       float64
	Max          float64
}

// WifiConnectionInfo is the advertiser's current Wi-Fi STA association
// state, read from the device agent.
type WifiConnectionInfo struct {
	// FrequencyMHz is the association frequency; negative when unknown.
	FrequencyMHz int `json:"frequency"`

	// MaxSupportedTxLinkSpeedMbps is the negotiated maximum link speed;
	// non-positive when unknown.
	MaxSupportedTxLinkSpeedMbps int `json:"maxSupportedTxLinkSpeed"`
}

// DeviceAttributes are the static radio capabilities and identifiers of one
// device in the pair.
type DeviceAttributes struct {
	Serial string
	Model  string

	Supports5G  bool
	SupportsDBS bool

	EnableStaDfsChannelForPeerNetwork    bool
	EnableStaIndoorChannelForPeerNetwork bool

	MaxNumStreams    int
	MaxNumStreamsDBS int

	MaxPhyRate2GMbps int
	MaxPhyRate5GMbps int

	AndroidVersion int
	AgentVersion   string
}

// Lines renders the attributes as report lines for the run summary.
func (a DeviceAttributes) Lines() []string {
	return []string{
		fmt.Sprintf("Device Serial: %s", a.Serial),
		fmt.Sprintf("Device Model: %s", a.Model),
		fmt.Sprintf("Supports 5G Wifi: %t", a.Supports5G),
		fmt.Sprintf("Supports DBS: %t", a.SupportsDBS),
		fmt.Sprintf("Enable STA DFS channel for peer network: %t", a.EnableStaDfsChannelForPeerNetwork),
		fmt.Sprintf("Enable STA Indoor channel for peer network: %t", a.EnableStaIndoorChannelForPeerNetwork),
		fmt.Sprintf("Max num of streams: %d", a.MaxNumStreams),
		fmt.Sprintf("Max num of streams (DBS): %d", a.MaxNumStreamsDBS),
		fmt.Sprintf("Android Version: %d", a.AndroidVersion),
		fmt.Sprintf("Agent Version: %s", a.AgentVersion),
	}
}

// IterationArchive is the archival record of one iteration, serialized as
// gzipped JSON on disk.
type IterationArchive struct {
	// GitShortCommit is the Git commit (short form) of the running harness.
	GitShortCommit string
	// Version is the symbolic version (if any) of the running harness.
	Version string

	// RunID identifies all iterations belonging to the same run.
	RunID string
	// UUID is the unique ID of this iteration record.
	UUID string

	StartTime time.Time
	EndTime   time.Time

	MediumUnderTest string

	Result SingleTestResult
}

// RunArchive is the archival record of a whole run.
type RunArchive struct {
	GitShortCommit string
	Version        string

	RunID string

	StartTime time.Time
	EndTime   time.Time

	MediumUnderTest string
	Iterations      int
	SuccessCount    int
	TestResult      string

	SourceDevice DeviceAttributes
	TargetDevice DeviceAttributes

	DetailedStats []string
}
