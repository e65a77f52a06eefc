// Package d2d drives device-to-device connection performance runs: it
// executes benchmark iterations against a pair of device agents, accumulates
// per-iteration results and produces the run verdict and detailed report.
package d2d

import (
	"context"
	"fmt"
	"time"

	"github.com/betocq/betocq/pkg/nc/model"
	"github.com/betocq/betocq/pkg/session"
)

// AdvertiserDevice is the control surface of the device that advertises and
// receives the payload.
type AdvertiserDevice interface {
	session.AdvertiserController

	ConnectToWifiStaTillSuccess(ctx context.Context, ssid, password string) (time.Duration, error)
	WifiConnectionInfo(ctx context.Context) (model.WifiConnectionInfo, error)
	ToggleAirplaneMode(ctx context.Context) error
	ForgetWifiNetworks(ctx context.Context) error
}

// DiscovererDevice is the control surface of the device that discovers the
// advertiser and sends the payload.
type DiscovererDevice interface {
	session.DiscovererController

	ConnectToWifiStaTillSuccess(ctx context.Context, ssid, password string) (time.Duration, error)
	ForgetWifiNetworks(ctx context.Context) error
}

// DevicePair is the two physical devices a run exclusively owns, together
// with their static attributes read once at setup.
type DevicePair struct {
	Advertiser      AdvertiserDevice
	Discoverer      DiscovererDevice
	AdvertiserAttrs model.DeviceAttributes
	DiscovererAttrs model.DeviceAttributes
}

// Recorder captures device state (e.g. screen or radio logs) for the
// duration of a run. Implementations own their background goroutine; Stop
// must join it before returning.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() error
}

// Fixture is the set of collaborators a Driver runs against. Recorder and
// Sink are optional.
type Fixture struct {
	Pair     DevicePair
	Recorder Recorder
	Sink     Sink
}

// deviceCapabilities maps requirement names to attribute accessors. The
// names follow the device config schema.
var deviceCapabilities = map[string]func(model.DeviceAttributes) bool{
	"supports_5g":  func(a model.DeviceAttributes) bool { return a.Supports5G },
	"supports_dbs": func(a model.DeviceAttributes) bool { return a.SupportsDBS },
	"enable_sta_dfs_channel_for_peer_network": func(a model.DeviceAttributes) bool {
		return a.EnableStaDfsChannelForPeerNetwork
	},
	"enable_sta_indoor_channel_for_peer_network": func(a model.DeviceAttributes) bool {
		return a.EnableStaIndoorChannelForPeerNetwork
	},
}

// CapabilityRequirements lists, per role, the capability flags a scenario
// requires and their expected values.
type CapabilityRequirements struct {
	Discoverer map[string]bool
	Advertiser map[string]bool
}

// SkipReason checks the pair's attributes against reqs and returns a
// human-readable reason to skip the run, or the empty string when every
// requirement is met. Unknown requirement names are reported as mismatches so
// a typo never silently passes.
func (p DevicePair) SkipReason(reqs CapabilityRequirements) string {
	roles := []struct {
		name  string
		attrs model.DeviceAttributes
		reqs  map[string]bool
	}{
		{"discoverer", p.DiscovererAttrs, reqs.Discoverer},
		{"advertiser", p.AdvertiserAttrs, reqs.Advertiser},
	}
	for _, role := range roles {
		for key, want := range role.reqs {
			accessor, ok := deviceCapabilities[key]
			if !ok {
				return fmt.Sprintf("%s %s.%s is not a known capability",
					role.attrs.Serial, role.name, key)
			}
			if got := accessor(role.attrs); got != want {
				state := "disabled"
				if got {
					state = "enabled"
				}
				return fmt.Sprintf("%s %s.%s is %s",
					role.attrs.Serial, role.name, key, state)
			}
		}
	}
	return ""
}
