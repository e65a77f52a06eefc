// Package benchmark derives the minimum acceptable file-transfer throughput
// for a D2D test scenario from the peers' radio capabilities and the
// advertiser's current Wi-Fi association.
package benchmark

import (
	"github.com/charmbracelet/log"

	"github.com/betocq/betocq/pkg/nc/model"
	"github.com/betocq/betocq/pkg/nc/spec"
)

const bitsPerByte = 8

// Params are the inputs of one benchmark computation. The computation is a
// pure function of these values: identical params yield identical results.
type Params struct {
	Discoverer model.DeviceAttributes
	Advertiser model.DeviceAttributes

	// Is2GMedium is true when the D2D medium under test operates on the
	// 2.4 GHz band.
	Is2GMedium bool

	// IsDBSMode is true when the advertiser runs the STA and the D2D link on
	// different bands simultaneously.
	IsDBSMode bool

	// IsMCCMode is true when the scenario forces multi-channel concurrency
	// rather than single-channel concurrency.
	IsMCCMode bool

	// StaInfo is the advertiser's Wi-Fi STA association state.
	StaInfo model.WifiConnectionInfo

	// UpgradeMedium is the medium actually negotiated for the transfer. The
	// applicable multiplier depends on it, so the benchmark is recomputed
	// once the upgrade outcome is known.
	UpgradeMedium model.ConnectionMedium
}

// MinThroughputKBps computes the minimum acceptable throughput in KBps for
// the given scenario.
func MinThroughputKBps(p Params) int64 {
	maxNumStreams := minInt(p.Discoverer.MaxNumStreams, p.Advertiser.MaxNumStreams)

	var maxPhyRateMbps int
	var minThroughputMBps int64
	if p.Is2GMedium {
		maxPhyRateMbps = minInt(p.Discoverer.MaxPhyRate2GMbps, p.Advertiser.MaxPhyRate2GMbps)
		maxPhyRateMbps = minInt(maxPhyRateMbps, maxNumStreams*spec.MaxPhyRatePerStreamN20Mbps)
		minThroughputMBps = int64(float64(maxPhyRateMbps) * spec.MaxPhyRateToMinThroughputRatio2G / bitsPerByte)
	} else {
		maxPhyRateMbps = minInt(p.Discoverer.MaxPhyRate5GMbps, p.Advertiser.MaxPhyRate5GMbps)
		// The stream count can be lower in DBS mode.
		if p.IsDBSMode {
			maxNumStreams = p.Advertiser.MaxNumStreamsDBS
		}
		maxPhyRateAC80 := maxNumStreams * spec.MaxPhyRatePerStreamAC80Mbps
		maxPhyRateMbps = minInt(maxPhyRateMbps, maxPhyRateAC80)

		// If the STA is associated to a 5 GHz AP with a channel narrower
		// than 80 MHz, limit the PHY rate to the 40 MHz class.
		if p.StaInfo.FrequencyMHz > 5000 &&
			p.StaInfo.MaxSupportedTxLinkSpeedMbps > 0 &&
			p.StaInfo.MaxSupportedTxLinkSpeedMbps < maxPhyRateAC80 {
			maxPhyRateMbps = minInt(maxPhyRateMbps, maxNumStreams*spec.MaxPhyRatePerStreamAC40Mbps)
		}

		minThroughputMBps = int64(float64(maxPhyRateMbps) * spec.MaxPhyRateToMinThroughputRatio5G / bitsPerByte)
		if p.IsMCCMode {
			minThroughputMBps = int64(float64(minThroughputMBps) * spec.MCCThroughputMultiplier)
		}
		if p.UpgradeMedium == model.ConnectionMediumWifiHotspot {
			minThroughputMBps = int64(float64(minThroughputMBps) * spec.WifiHotspotThroughputMultiplier)
		}
		if p.UpgradeMedium == model.ConnectionMediumWifiLan {
			minThroughputMBps = minInt64(minThroughputMBps, spec.WifiLanThroughputCapMBps)
		}
	}

	log.Debug("computed throughput benchmark",
		"staFrequency", p.StaInfo.FrequencyMHz,
		"staMaxLinkSpeedMbps", p.StaInfo.MaxSupportedTxLinkSpeedMbps,
		"maxPhyRateMbps", maxPhyRateMbps,
		"minThroughputMBps", minThroughputMBps,
		"upgradeMedium", p.UpgradeMedium)

	return minThroughputMBps * 1024
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
