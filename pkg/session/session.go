// Package session drives one connection attempt between an advertiser and a
// discoverer device: advertising, discovery, connection, optional medium
// upgrade, payload transfer and teardown. Every stage is bounded by an
// explicit timeout; exceeding it yields a typed failure reason instead of an
// unbounded hang.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/betocq/betocq/pkg/nc/model"
	"github.com/betocq/betocq/pkg/nc/spec"
)

// AdvertiserController is the agent surface the advertising side needs.
type AdvertiserController interface {
	Serial() string
	StartAdvertising(ctx context.Context, medium model.Medium) error
	StopAdvertising(ctx context.Context) error
}

// DiscovererController is the agent surface the discovering side needs.
type DiscovererController interface {
	Serial() string
	StartDiscovery(ctx context.Context, medium model.Medium) (string, error)
	StopDiscovery(ctx context.Context) error
	RequestConnection(ctx context.Context, endpointID string, medium model.Medium,
		keepAlive spec.KeepAliveParams) error
	UpgradeMedium(ctx context.Context, endpointID string, medium model.Medium,
		upgradeType model.MediumUpgradeType) (model.ConnectionMedium, error)
	SendPayload(ctx context.Context, endpointID string, sizeBytes int64,
		payloadType model.PayloadType) (int64, error)
	DisconnectEndpoint(ctx context.Context, endpointID string) error
}

// StartOptions configure one connection attempt.
type StartOptions struct {
	Timeouts    spec.ConnectionSetupTimeouts
	UpgradeType model.MediumUpgradeType
	KeepAlive   spec.KeepAliveParams
}

// Wrapper is one connection session between a device pair. Its FailureReason
// and Quality fields are updated as stages run, so callers can read them in
// a deferred report step even when a stage fails.
type Wrapper struct {
	advertiser AdvertiserController
	discoverer DiscovererController

	advertisingMedium model.Medium
	connectionMedium  model.Medium
	upgradeMedium     model.Medium

	// FailureReason is the outcome of the most recent stage. It stays
	// UNINITIALIZED until Start runs.
	FailureReason model.FailureReason

	// Quality is the telemetry of this attempt.
	Quality model.QualityInfo

	endpointID string
	connected  bool
}

// New returns a Wrapper for one connection attempt. advertisingMedium is the
// medium used for advertising and discovery, connectionMedium for the
// initial connection, and upgradeMedium the medium the connection is
// upgraded to when it is a Wi-Fi-class medium.
func New(advertiser AdvertiserController, discoverer DiscovererController,
	advertisingMedium, connectionMedium, upgradeMedium model.Medium) *Wrapper {
	return &Wrapper{
		advertiser:        advertiser,
		discoverer:        discoverer,
		advertisingMedium: advertisingMedium,
		connectionMedium:  connectionMedium,
		upgradeMedium:     upgradeMedium,
		FailureReason:     model.FailureUninitialized,
	}
}

// EndpointID returns the discovered endpoint's ID. It is empty until
// discovery succeeded.
func (w *Wrapper) EndpointID() string {
	return w.endpointID
}

// Start runs advertising, discovery, connection and, for Wi-Fi-class upgrade
// mediums, the medium upgrade. On failure it records the failing stage's
// reason and returns an error; the stages already completed keep their
// telemetry in Quality.
func (w *Wrapper) Start(ctx context.Context, opts StartOptions) error {
	w.Quality.MediumUpgradeExpected = w.upgradeMedium.IsHighQuality()

	// Advertising must be up before the discoverer scans.
	advCtx, cancel := context.WithTimeout(ctx, opts.Timeouts.ConnectionInit)
	err := w.advertiser.StartAdvertising(advCtx, w.advertisingMedium)
	cancel()
	if err != nil {
		w.FailureReason = model.FailureAdvertising
		return fmt.Errorf("starting advertising on %s: %w", w.advertiser.Serial(), err)
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, opts.Timeouts.Discovery)
	discoveryStart := time.Now()
	endpointID, err := w.discoverer.StartDiscovery(discoveryCtx, w.advertisingMedium)
	cancel()
	if err != nil {
		w.FailureReason = model.FailureDiscovery
		return fmt.Errorf("discovering %s from %s: %w",
			w.advertiser.Serial(), w.discoverer.Serial(), err)
	}
	w.endpointID = endpointID
	w.Quality.DiscoveryLatency = model.SetDuration(time.Since(discoveryStart))
	log.Info("endpoint discovered", "endpoint", endpointID,
		"latency", w.Quality.DiscoveryLatency.Duration)

	connCtx, cancel := context.WithTimeout(ctx,
		opts.Timeouts.ConnectionInit+opts.Timeouts.ConnectionResult)
	connStart := time.Now()
	err = w.discoverer.RequestConnection(connCtx, endpointID, w.connectionMedium, opts.KeepAlive)
	cancel()
	if err != nil {
		w.FailureReason = model.FailureConnection
		return fmt.Errorf("connecting to %s: %w", endpointID, err)
	}
	w.connected = true
	w.Quality.ConnectionLatency = model.SetDuration(time.Since(connStart))
	log.Info("connection established", "endpoint", endpointID,
		"medium", w.connectionMedium,
		"latency", w.Quality.ConnectionLatency.Duration)

	if w.Quality.MediumUpgradeExpected {
		upgradeCtx, cancel := context.WithTimeout(ctx, opts.Timeouts.ConnectionResult)
		upgradeStart := time.Now()
		negotiated, err := w.discoverer.UpgradeMedium(upgradeCtx, endpointID,
			w.upgradeMedium, opts.UpgradeType)
		cancel()
		if err != nil {
			w.FailureReason = model.FailureWifiMediumUpgrade
			return fmt.Errorf("upgrading to %s: %w", w.upgradeMedium, err)
		}
		w.Quality.MediumUpgradeLatency = model.SetDuration(time.Since(upgradeStart))
		w.Quality.UpgradeMedium = negotiated
		log.Info("medium upgraded", "endpoint", endpointID,
			"requested", w.upgradeMedium, "negotiated", negotiated,
			"latency", w.Quality.MediumUpgradeLatency.Duration)
	}

	w.FailureReason = model.FailureSuccess
	return nil
}

// TransferFile transfers a payload of sizeBytes over the established
// connection within timeout and returns the measured throughput.
func (w *Wrapper) TransferFile(ctx context.Context, sizeBytes int64,
	timeout time.Duration, payloadType model.PayloadType) (model.NullKBps, error) {
	if !w.connected {
		w.FailureReason = model.FailureFileTransferFail
		return model.NullKBps{}, fmt.Errorf("transfer requested without a connection")
	}
	transferCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	kbps, err := w.discoverer.SendPayload(transferCtx, w.endpointID, sizeBytes, payloadType)
	if err != nil {
		w.FailureReason = model.FailureFileTransferFail
		return model.NullKBps{}, fmt.Errorf("transferring %d bytes to %s: %w",
			sizeBytes, w.endpointID, err)
	}
	w.FailureReason = model.FailureSuccess
	log.Info("transfer complete", "endpoint", w.endpointID,
		"sizeBytes", sizeBytes, "throughputKBps", kbps)
	return model.SetKBps(kbps), nil
}

// Disconnect tears the session down. It is best-effort and safe to call on
// any exit path, including after a failed Start.
func (w *Wrapper) Disconnect(ctx context.Context) {
	if w.endpointID != "" && w.connected {
		if err := w.discoverer.DisconnectEndpoint(ctx, w.endpointID); err != nil {
			log.Warn("disconnect failed", "endpoint", w.endpointID, "error", err)
		}
		w.connected = false
	}
	if err := w.discoverer.StopDiscovery(ctx); err != nil {
		log.Debug("stopping discovery failed", "error", err)
	}
	if err := w.advertiser.StopAdvertising(ctx); err != nil {
		log.Debug("stopping advertising failed", "error", err)
	}
}
