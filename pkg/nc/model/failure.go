package model

import "fmt"

// FailureReason classifies the outcome of one benchmark iteration. The set is
// closed: every reason maps to a fixed triage tip.
type FailureReason int

const (
	// FailureSuccess means every stage of the iteration completed and the
	// measured throughput met the benchmark.
	FailureSuccess FailureReason = iota

	// FailureUninitialized is the zero value assigned before any stage runs.
	// Seeing it in a final report indicates a harness defect.
	FailureUninitialized

	// FailureSourceWifiConnection means the discoverer failed to associate
	// with the test AP.
	FailureSourceWifiConnection

	// FailureTargetWifiConnection means the advertiser failed to associate
	// with the test AP.
	FailureTargetWifiConnection

	// FailureAdvertising means the advertiser could not start advertising.
	FailureAdvertising

	// FailureDiscovery means the discoverer did not find the advertiser
	// within the discovery timeout.
	FailureDiscovery

	// FailureConnection means the connection request was not accepted within
	// the connection timeouts.
	FailureConnection

	// FailureWifiMediumUpgrade means the upgrade to the Wi-Fi medium under
	// test did not complete.
	FailureWifiMediumUpgrade

	// FailureFileTransferFail means the payload transfer did not complete
	// within its timeout.
	FailureFileTransferFail

	// FailureFileTransferThroughputLow means the transfer completed but the
	// measured throughput was below the computed benchmark.
	FailureFileTransferThroughputLow

	// FailureDisconnectedFromPeer means the connection dropped before the
	// transfer finished.
	FailureDisconnectedFromPeer
)

var failureReasonNames = map[FailureReason]string{
	FailureSuccess:                   "SUCCESS",
	FailureUninitialized:             "UNINITIALIZED",
	FailureSourceWifiConnection:      "SOURCE_WIFI_CONNECTION",
	FailureTargetWifiConnection:      "TARGET_WIFI_CONNECTION",
	FailureAdvertising:               "ADVERTISING",
	FailureDiscovery:                 "DISCOVERY",
	FailureConnection:                "CONNECTION",
	FailureWifiMediumUpgrade:         "WIFI_MEDIUM_UPGRADE",
	FailureFileTransferFail:          "FILE_TRANSFER_FAIL",
	FailureFileTransferThroughputLow: "FILE_TRANSFER_THROUGHPUT_LOW",
	FailureDisconnectedFromPeer:      "DISCONNECTED_FROM_PEER",
}

func (r FailureReason) String() string {
	if name, ok := failureReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("FAILURE_REASON(%d)", int(r))
}

// commonTriageTips maps every failure reason to a fixed triage tip. The table
// is exhaustive over the FailureReason values; TriageTip falls back to a
// generic message for reasons missing here, which TestTriageTipsExhaustive
// treats as a defect.
var commonTriageTips = map[FailureReason]string{
	FailureSuccess:              "success!",
	FailureUninitialized:        "not executed yet (likely due to some early failure)",
	FailureSourceWifiConnection: "source device can not connect to the wifi AP",
	FailureTargetWifiConnection: "target device can not connect to the wifi AP",
	FailureAdvertising:          "advertising could not start; check the BT/BLE state of the target device",
	FailureDiscovery:            "the source device can not discover the target device",
	FailureConnection:           "nearby connection request was not accepted in time",
	FailureWifiMediumUpgrade:    "medium upgrade to the wifi medium under test failed",
	FailureFileTransferFail:     "file transfer failed; check the connection state on both devices",
	FailureFileTransferThroughputLow: "the measured throughput is lower than the expected benchmark; " +
		"check the wifi medium, channel and the distance between devices",
	FailureDisconnectedFromPeer: "the connection dropped before the transfer finished",
}

// TriageTip returns the fixed triage tip for this failure reason.
func (r FailureReason) TriageTip() string {
	if tip, ok := commonTriageTips[r]; ok {
		return tip
	}
	return fmt.Sprintf("unexpected failure reason - %s", r)
}

// mediumUpgradeTriageTips carries medium-specific guidance for
// WIFI_MEDIUM_UPGRADE failures.
var mediumUpgradeTriageTips = map[Medium]string{
	MediumUpgradeToWifiHotspot: "check the hotspot interface availability on the target device",
	MediumUpgradeToWifiDirect:  "check the wifi direct group formation on both devices",
	MediumWifiLanOnly:          "check that both devices are on the same AP and mDNS is not blocked",
	MediumWifiAwareOnly:        "check aware availability and that the devices are within range",
	MediumUpgradeToWebRTC:      "check internet reachability on both devices",
	MediumUpgradeToAllWifi:     "check the availability of all wifi mediums on both devices",
}

// MediumUpgradeTriageTip returns a triage tip for an upgrade failure while
// testing the given medium.
func MediumUpgradeTriageTip(m Medium) string {
	if tip, ok := mediumUpgradeTriageTips[m]; ok {
		return tip
	}
	return fmt.Sprintf("unexpected upgrade medium - %s", m)
}
