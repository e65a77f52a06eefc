package snippet

import (
	"context"

	"github.com/betocq/betocq/pkg/nc/model"
	"github.com/betocq/betocq/pkg/nc/spec"
)

// Attributes reads the device's static attributes from the agent.
func (c *Client) Attributes(ctx context.Context) (model.DeviceAttributes, error) {
	var attrs model.DeviceAttributes
	if err := c.Call(ctx, "getDeviceAttributes", nil, &attrs); err != nil {
		return model.DeviceAttributes{}, err
	}
	if attrs.Serial == "" {
		attrs.Serial = c.serial
	}
	return attrs, nil
}

// WifiConnectionInfo reads the device's current Wi-Fi STA association state.
func (c *Client) WifiConnectionInfo(ctx context.Context) (model.WifiConnectionInfo, error) {
	var info model.WifiConnectionInfo
	err := c.Call(ctx, "wifiGetConnectionInfo", nil, &info)
	return info, err
}

// ToggleAirplaneMode toggles airplane mode on and off to reset the device's
// radio state.
func (c *Client) ToggleAirplaneMode(ctx context.Context) error {
	return c.Call(ctx, "toggleAirplaneMode", nil, nil)
}

// ForgetWifiNetworks removes all saved Wi-Fi networks from the device.
func (c *Client) ForgetWifiNetworks(ctx context.Context) error {
	return c.Call(ctx, "forgetWifiNetworks", nil, nil)
}

type advertisingParams struct {
	Medium int `json:"medium"`
}

// StartAdvertising makes the device advertise on the given medium.
func (c *Client) StartAdvertising(ctx context.Context, medium model.Medium) error {
	return c.Call(ctx, "startAdvertising", advertisingParams{Medium: int(medium)}, nil)
}

// StopAdvertising stops an ongoing advertisement.
func (c *Client) StopAdvertising(ctx context.Context) error {
	return c.Call(ctx, "stopAdvertising", nil, nil)
}

type discoveryParams struct {
	Medium int `json:"medium"`
}

type discoveryResult struct {
	EndpointID string `json:"endpointId"`
}

// StartDiscovery scans on the given medium until the advertiser is found or
// the context's deadline expires. It returns the discovered endpoint ID.
func (c *Client) StartDiscovery(ctx context.Context, medium model.Medium) (string, error) {
	var result discoveryResult
	err := c.Call(ctx, "startDiscovery", discoveryParams{Medium: int(medium)}, &result)
	return result.EndpointID, err
}

// StopDiscovery stops an ongoing scan.
func (c *Client) StopDiscovery(ctx context.Context) error {
	return c.Call(ctx, "stopDiscovery", nil, nil)
}

type connectionParams struct {
	EndpointID          string `json:"endpointId"`
	Medium              int    `json:"medium"`
	KeepAliveTimeoutMs  int64  `json:"keepAliveTimeoutMs,omitempty"`
	KeepAliveIntervalMs int64  `json:"keepAliveIntervalMs,omitempty"`
}

// RequestConnection connects to the discovered endpoint over the given
// medium and blocks until both sides accepted or the deadline expires.
func (c *Client) RequestConnection(ctx context.Context, endpointID string,
	medium model.Medium, keepAlive spec.KeepAliveParams) error {
	return c.Call(ctx, "requestConnection", connectionParams{
		EndpointID:          endpointID,
		Medium:              int(medium),
		KeepAliveTimeoutMs:  keepAlive.Timeout.Milliseconds(),
		KeepAliveIntervalMs: keepAlive.Interval.Milliseconds(),
	}, nil)
}

type upgradeParams struct {
	EndpointID  string `json:"endpointId"`
	Medium      int    `json:"medium"`
	UpgradeType int    `json:"upgradeType"`
}

type upgradeResult struct {
	Medium int `json:"medium"`
}

// UpgradeMedium upgrades the established connection to the requested medium
// and returns the medium actually negotiated.
func (c *Client) UpgradeMedium(ctx context.Context, endpointID string,
	medium model.Medium, upgradeType model.MediumUpgradeType) (model.ConnectionMedium, error) {
	var result upgradeResult
	err := c.Call(ctx, "upgradeMedium", upgradeParams{
		EndpointID:  endpointID,
		Medium:      int(medium),
		UpgradeType: int(upgradeType),
	}, &result)
	return model.ConnectionMedium(result.Medium), err
}

type payloadParams struct {
	EndpointID  string `json:"endpointId"`
	SizeBytes   int64  `json:"sizeBytes"`
	PayloadType string `json:"payloadType"`
}

type payloadResult struct {
	ThroughputKBps int64 `json:"throughputKbps"`
}

// SendPayload transfers a payload of the given size to the endpoint and
// returns the throughput measured by the agent in KBps.
func (c *Client) SendPayload(ctx context.Context, endpointID string,
	sizeBytes int64, payloadType model.PayloadType) (int64, error) {
	var result payloadResult
	err := c.Call(ctx, "sendPayload", payloadParams{
		EndpointID:  endpointID,
		SizeBytes:   sizeBytes,
		PayloadType: string(payloadType),
	}, &result)
	return result.ThroughputKBps, err
}

type disconnectParams struct {
	EndpointID string `json:"endpointId"`
}

// DisconnectEndpoint tears down the connection to the endpoint.
func (c *Client) DisconnectEndpoint(ctx context.Context, endpointID string) error {
	return c.Call(ctx, "disconnectEndpoint", disconnectParams{EndpointID: endpointID}, nil)
}
