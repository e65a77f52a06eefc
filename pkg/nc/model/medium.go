package model

import "fmt"

// Medium is the transport requested from the connection stack for
// advertising/discovery, connection, or medium upgrade.
type Medium int

// Medium values mirror the device agent's medium selector.
const (
	MediumAuto Medium = iota
	MediumBTOnly
	MediumBLEOnly
	MediumWifiLanOnly
	MediumWifiAwareOnly
	MediumUpgradeToWebRTC
	MediumUpgradeToWifiHotspot
	MediumUpgradeToWifiDirect
	MediumBLEL2CapOnly
	MediumUpgradeToAllWifi
)

var mediumNames = map[Medium]string{
	MediumAuto:                 "AUTO",
	MediumBTOnly:               "BT_ONLY",
	MediumBLEOnly:              "BLE_ONLY",
	MediumWifiLanOnly:          "WIFILAN_ONLY",
	MediumWifiAwareOnly:        "WIFIAWARE_ONLY",
	MediumUpgradeToWebRTC:      "UPGRADE_TO_WEBRTC",
	MediumUpgradeToWifiHotspot: "UPGRADE_TO_WIFIHOTSPOT",
	MediumUpgradeToWifiDirect:  "UPGRADE_TO_WIFIDIRECT",
	MediumBLEL2CapOnly:         "BLE_L2CAP_ONLY",
	MediumUpgradeToAllWifi:     "UPGRADE_TO_ALL_WIFI",
}

func (m Medium) String() string {
	if name, ok := mediumNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MEDIUM(%d)", int(m))
}

// ParseMedium returns the Medium with the given name.
func ParseMedium(name string) (Medium, error) {
	for m, n := range mediumNames {
		if n == name {
			return m, nil
		}
	}
	return MediumAuto, fmt.Errorf("unknown medium %q", name)
}

// IsHighQuality reports whether m is a Wi-Fi-class medium, as opposed to a
// Bluetooth-class one. Only high-quality mediums attempt a medium upgrade,
// and only their runs report upgrade statistics.
func (m Medium) IsHighQuality() bool {
	switch m {
	case MediumWifiLanOnly,
		MediumWifiAwareOnly,
		MediumUpgradeToWebRTC,
		MediumUpgradeToWifiHotspot,
		MediumUpgradeToWifiDirect,
		MediumUpgradeToAllWifi:
		return true
	default:
		return false
	}
}

// ConnectionMedium is the medium actually carrying payloads after the
// connection stack finished negotiating, as reported by the device agent.
type ConnectionMedium int

// ConnectionMedium values mirror the agent's transport callback.
const (
	ConnectionMediumUnknown ConnectionMedium = iota
	ConnectionMediumMDNS
	ConnectionMediumBluetooth
	ConnectionMediumWifiHotspot
	ConnectionMediumBLE
	ConnectionMediumWifiLan
	ConnectionMediumWifiAware
	ConnectionMediumNFC
	ConnectionMediumWifiDirect
	ConnectionMediumWebRTC
	ConnectionMediumBLEL2Cap
	ConnectionMediumUSB
)

var connectionMediumNames = map[ConnectionMedium]string{
	ConnectionMediumUnknown:     "UNKNOWN",
	ConnectionMediumMDNS:        "MDNS",
	ConnectionMediumBluetooth:   "BLUETOOTH",
	ConnectionMediumWifiHotspot: "WIFI_HOTSPOT",
	ConnectionMediumBLE:         "BLE",
	ConnectionMediumWifiLan:     "WIFI_LAN",
	ConnectionMediumWifiAware:   "WIFI_AWARE",
	ConnectionMediumNFC:         "NFC",
	ConnectionMediumWifiDirect:  "WIFI_DIRECT",
	ConnectionMediumWebRTC:      "WEB_RTC",
	ConnectionMediumBLEL2Cap:    "BLE_L2CAP",
	ConnectionMediumUSB:         "USB",
}

func (m ConnectionMedium) String() string {
	if name, ok := connectionMediumNames[m]; ok {
		return name
	}
	return fmt.Sprintf("CONNECTION_MEDIUM(%d)", int(m))
}

// MediumUpgradeType selects whether the connection stack may tear down the
// current medium while upgrading to a better one.
type MediumUpgradeType int

const (
	// UpgradeTypeNonDisruptive keeps the current medium alive during the
	// upgrade. Used by the prior Bluetooth connection.
	UpgradeTypeNonDisruptive MediumUpgradeType = iota

	// UpgradeTypeDisruptive allows the stack to drop the current medium in
	// favor of the upgraded one. Used by the primary connection under test.
	UpgradeTypeDisruptive
)

func (t MediumUpgradeType) String() string {
	if t == UpgradeTypeDisruptive {
		return "DISRUPTIVE"
	}
	return "NON_DISRUPTIVE"
}

// PayloadType selects the payload framing of a file transfer.
type PayloadType string

const (
	PayloadTypeFile   PayloadType = "FILE"
	PayloadTypeStream PayloadType = "STREAM"
)
