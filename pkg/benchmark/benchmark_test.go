package benchmark

import (
	"testing"

	"github.com/betocq/betocq/pkg/nc/model"
	"github.com/betocq/betocq/pkg/nc/spec"
)

func device(streams, streamsDBS, rate2G, rate5G int) model.DeviceAttributes {
	return model.DeviceAttributes{
		MaxNumStreams:    streams,
		MaxNumStreamsDBS: streamsDBS,
		MaxPhyRate2GMbps: rate2G,
		MaxPhyRate5GMbps: rate5G,
	}
}

func TestMinThroughputKBps_WifiLanCapped(t *testing.T) {
	// Two 2-stream devices declaring the full AC80 rate, associated to a
	// 5 GHz AP with no link-speed cap: the raw benchmark lands exactly on
	// the Wi-Fi LAN ceiling.
	p := Params{
		Discoverer:    device(2, 1, 287, 866),
		Advertiser:    device(2, 1, 287, 866),
		StaInfo:       model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 866},
		UpgradeMedium: model.ConnectionMediumWifiLan,
	}
	got := MinThroughputKBps(p)
	want := int64(spec.WifiLanThroughputCapMBps) * 1024
	if got != want {
		t.Errorf("MinThroughputKBps = %d, want %d", got, want)
	}
}

func TestMinThroughputKBps_WifiLanCapBinds(t *testing.T) {
	// Four streams push the uncapped benchmark well above the LAN ceiling;
	// the cap must win.
	p := Params{
		Discoverer:    device(4, 2, 287, 1733),
		Advertiser:    device(4, 2, 287, 1733),
		StaInfo:       model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 1733},
		UpgradeMedium: model.ConnectionMediumWifiLan,
	}
	got := MinThroughputKBps(p)
	want := int64(spec.WifiLanThroughputCapMBps) * 1024
	if got != want {
		t.Errorf("MinThroughputKBps = %d, want %d", got, want)
	}
}

func TestMinThroughputKBps_LinkSpeedCapsChannelWidth(t *testing.T) {
	// A negotiated link speed below the AC80-class rate indicates a channel
	// narrower than 80 MHz: the benchmark falls back to the AC40 rate.
	p := Params{
		Discoverer:    device(2, 1, 287, 866),
		Advertiser:    device(2, 1, 287, 866),
		StaInfo:       model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 400},
		UpgradeMedium: model.ConnectionMediumWifiDirect,
	}
	got := MinThroughputKBps(p)
	// min(866, 2*433, 2*200) = 400 Mbps -> int(400*0.37/8) = 18 MBps.
	want := int64(18) * 1024
	if got != want {
		t.Errorf("MinThroughputKBps = %d, want %d", got, want)
	}
}

func TestMinThroughputKBps_NoCapOn24GHzSta(t *testing.T) {
	// The link-speed cap only applies to 5 GHz associations.
	p := Params{
		Discoverer:    device(2, 1, 287, 866),
		Advertiser:    device(2, 1, 287, 866),
		StaInfo:       model.WifiConnectionInfo{FrequencyMHz: 2437, MaxSupportedTxLinkSpeedMbps: 144},
		UpgradeMedium: model.ConnectionMediumWifiDirect,
	}
	got := MinThroughputKBps(p)
	// int(866*0.37/8) = 40 MBps, no multipliers.
	want := int64(40) * 1024
	if got != want {
		t.Errorf("MinThroughputKBps = %d, want %d", got, want)
	}
}

func TestMinThroughputKBps_DBSUsesAdvertiserDBSStreams(t *testing.T) {
	p := Params{
		Discoverer:    device(2, 1, 287, 866),
		Advertiser:    device(2, 1, 287, 866),
		IsDBSMode:     true,
		StaInfo:       model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 866},
		UpgradeMedium: model.ConnectionMediumWifiDirect,
	}
	got := MinThroughputKBps(p)
	// DBS drops to one stream: min(866, 433) = 433 -> int(433*0.37/8) = 20.
	want := int64(20) * 1024
	if got != want {
		t.Errorf("MinThroughputKBps = %d, want %d", got, want)
	}
}

func TestMinThroughputKBps_MCCAndHotspotMultipliers(t *testing.T) {
	base := Params{
		Discoverer:    device(2, 1, 287, 866),
		Advertiser:    device(2, 1, 287, 866),
		StaInfo:       model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 866},
		UpgradeMedium: model.ConnectionMediumWifiDirect,
	}

	mcc := base
	mcc.IsMCCMode = true
	// int(40 * 0.25) = 10 MBps.
	if got, want := MinThroughputKBps(mcc), int64(10)*1024; got != want {
		t.Errorf("MCC MinThroughputKBps = %d, want %d", got, want)
	}

	hotspot := base
	hotspot.UpgradeMedium = model.ConnectionMediumWifiHotspot
	// int(40 * 0.8) = 32 MBps.
	if got, want := MinThroughputKBps(hotspot), int64(32)*1024; got != want {
		t.Errorf("hotspot MinThroughputKBps = %d, want %d", got, want)
	}
}

func TestMinThroughputKBps_2GMedium(t *testing.T) {
	p := Params{
		Discoverer: device(2, 1, 287, 866),
		Advertiser: device(2, 1, 192, 866),
		Is2GMedium: true,
		// Multipliers and STA capping do not apply on the 2.4 GHz path.
		IsMCCMode:     true,
		StaInfo:       model.WifiConnectionInfo{FrequencyMHz: 2437, MaxSupportedTxLinkSpeedMbps: 72},
		UpgradeMedium: model.ConnectionMediumWifiHotspot,
	}
	got := MinThroughputKBps(p)
	// min(287, 192, 2*72) = 144 -> int(144*0.25/8) = 4 MBps.
	want := int64(4) * 1024
	if got != want {
		t.Errorf("MinThroughputKBps = %d, want %d", got, want)
	}
}

func TestMinThroughputKBps_Idempotent(t *testing.T) {
	p := Params{
		Discoverer:    device(2, 1, 287, 866),
		Advertiser:    device(2, 1, 287, 866),
		StaInfo:       model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 866},
		UpgradeMedium: model.ConnectionMediumWifiLan,
	}
	if first, second := MinThroughputKBps(p), MinThroughputKBps(p); first != second {
		t.Errorf("benchmark not idempotent: %d != %d", first, second)
	}
}
