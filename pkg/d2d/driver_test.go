package d2d

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/betocq/betocq/internal/registry"
	"github.com/betocq/betocq/pkg/nc/model"
	"github.com/betocq/betocq/pkg/nc/spec"
)

type fakeAdvertiserDevice struct {
	serial string

	staErr  error
	staInfo model.WifiConnectionInfo

	advertiseErr error

	staCalls        int
	airplaneToggles int
	forgets         int
	advertising     bool
}

func (f *fakeAdvertiserDevice) Serial() string { return f.serial }

func (f *fakeAdvertiserDevice) StartAdvertising(ctx context.Context, medium model.Medium) error {
	if f.advertiseErr != nil {
		return f.advertiseErr
	}
	f.advertising = true
	return nil
}

func (f *fakeAdvertiserDevice) StopAdvertising(ctx context.Context) error {
	f.advertising = false
	return nil
}

func (f *fakeAdvertiserDevice) ConnectToWifiStaTillSuccess(ctx context.Context,
	ssid, password string) (time.Duration, error) {
	f.staCalls++
	if f.staErr != nil {
		return 0, f.staErr
	}
	return 3 * time.Second, nil
}

func (f *fakeAdvertiserDevice) WifiConnectionInfo(ctx context.Context) (model.WifiConnectionInfo, error) {
	return f.staInfo, nil
}

func (f *fakeAdvertiserDevice) ToggleAirplaneMode(ctx context.Context) error {
	f.airplaneToggles++
	return nil
}

func (f *fakeAdvertiserDevice) ForgetWifiNetworks(ctx context.Context) error {
	f.forgets++
	return nil
}

type fakeDiscovererDevice struct {
	serial string

	staErr       error
	discoveryErr error

	// connectErrs are consumed one per RequestConnection call, letting a
	// test fail the prior BT connection while the primary one succeeds.
	connectErrs  []error
	connectCalls int

	upgradeErr error
	negotiated model.ConnectionMedium

	payloadErr error
	kbps       int64

	staCalls    int
	forgets     int
	disconnects int
}

func (f *fakeDiscovererDevice) Serial() string { return f.serial }

func (f *fakeDiscovererDevice) StartDiscovery(ctx context.Context, medium model.Medium) (string, error) {
	if f.discoveryErr != nil {
		return "", f.discoveryErr
	}
	return "ep-1", nil
}

func (f *fakeDiscovererDevice) StopDiscovery(ctx context.Context) error { return nil }

func (f *fakeDiscovererDevice) RequestConnection(ctx context.Context, endpointID string,
	medium model.Medium, keepAlive spec.KeepAliveParams) error {
	var err error
	if f.connectCalls < len(f.connectErrs) {
		err = f.connectErrs[f.connectCalls]
	}
	f.connectCalls++
	return err
}

func (f *fakeDiscovererDevice) UpgradeMedium(ctx context.Context, endpointID string,
	medium model.Medium, upgradeType model.MediumUpgradeType) (model.ConnectionMedium, error) {
	if f.upgradeErr != nil {
		return model.ConnectionMediumUnknown, f.upgradeErr
	}
	return f.negotiated, nil
}

func (f *fakeDiscovererDevice) SendPayload(ctx context.Context, endpointID string,
	sizeBytes int64, payloadType model.PayloadType) (int64, error) {
	if f.payloadErr != nil {
		return 0, f.payloadErr
	}
	return f.kbps, nil
}

func (f *fakeDiscovererDevice) DisconnectEndpoint(ctx context.Context, endpointID string) error {
	f.disconnects++
	return nil
}

func (f *fakeDiscovererDevice) ConnectToWifiStaTillSuccess(ctx context.Context,
	ssid, password string) (time.Duration, error) {
	f.staCalls++
	if f.staErr != nil {
		return 0, f.staErr
	}
	return 2 * time.Second, nil
}

func (f *fakeDiscovererDevice) ForgetWifiNetworks(ctx context.Context) error {
	f.forgets++
	return nil
}

type fakeSink struct {
	iterations []IterationReport
	summaries  []RunSummary
}

func (s *fakeSink) EmitIteration(r IterationReport) { s.iterations = append(s.iterations, r) }
func (s *fakeSink) EmitSummary(r RunSummary)        { s.summaries = append(s.summaries, r) }

// ac5gAttrs returns attributes of a 2-stream 5 GHz capable device. The
// resulting Wi-Fi LAN benchmark is the LAN cap: 40 MBps, i.e. 40960 KBps.
func ac5gAttrs(serial string) model.DeviceAttributes {
	return model.DeviceAttributes{
		Serial:           serial,
		Model:            "pixel8",
		Supports5G:       true,
		MaxNumStreams:    2,
		MaxNumStreamsDBS: 1,
		MaxPhyRate2GMbps: 287,
		MaxPhyRate5GMbps: 866,
		AndroidVersion:   14,
	}
}

func lanScenario(iterations int) Scenario {
	return Scenario{
		MediumUnderTest: model.MediumWifiLanOnly,
		Iterations:      iterations,
	}
}

func newFixture(adv *fakeAdvertiserDevice, disc *fakeDiscovererDevice, sink Sink) Fixture {
	return Fixture{
		Pair: DevicePair{
			Advertiser:      adv,
			Discoverer:      disc,
			AdvertiserAttrs: ac5gAttrs("adv-1"),
			DiscovererAttrs: ac5gAttrs("disc-1"),
		},
		Sink: sink,
	}
}

func TestRunIteration_Success(t *testing.T) {
	adv := &fakeAdvertiserDevice{serial: "adv-1",
		staInfo: model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 1200}}
	disc := &fakeDiscovererDevice{serial: "disc-1",
		negotiated: model.ConnectionMediumWifiLan, kbps: 50000}
	sink := &fakeSink{}
	dataDir := t.TempDir()
	reg := registry.New(t.TempDir(), time.Minute)
	defer reg.Stop()

	d := NewDriver(newFixture(adv, disc, sink), lanScenario(1),
		DriverOptions{DataDir: dataDir, Registry: reg})
	result := d.RunIteration(context.Background(), 0)

	if result.FailureReason != model.FailureSuccess {
		t.Fatalf("FailureReason = %s, want SUCCESS (%s)", result.FailureReason, result.ResultMessage)
	}
	if result.ResultMessage != "PASS" {
		t.Errorf("ResultMessage = %q, want PASS", result.ResultMessage)
	}
	if !result.TransferThroughput.Valid || result.TransferThroughput.KBps != 50000 {
		t.Errorf("TransferThroughput = %+v, want 50000", result.TransferThroughput)
	}
	if disc.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", disc.disconnects)
	}
	if len(sink.iterations) != 1 {
		t.Fatalf("sink got %d iteration reports, want 1", len(sink.iterations))
	}
	if len(d.perf.TransferThroughputsKBps) != 1 || len(d.perf.MediumUpgradeLatencies) != 1 {
		t.Errorf("metrics not collected: %+v", d.perf)
	}
	if reg.Get("ep-1") == nil {
		t.Errorf("endpoint ep-1 not observed in the registry")
	}

	archives := 0
	filepath.WalkDir(dataDir, func(path string, entry fs.DirEntry, err error) error {
		if err == nil && strings.HasSuffix(path, ".json.gz") {
			archives++
		}
		return nil
	})
	if archives != 1 {
		t.Errorf("found %d iteration archives, want 1", archives)
	}
}

func TestRunIteration_ThroughputLow(t *testing.T) {
	// The LAN cap yields a 40960 KBps benchmark; 30000 KBps is below it.
	adv := &fakeAdvertiserDevice{serial: "adv-1",
		staInfo: model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 1200}}
	disc := &fakeDiscovererDevice{serial: "disc-1",
		negotiated: model.ConnectionMediumWifiLan, kbps: 30000}

	d := NewDriver(newFixture(adv, disc, &fakeSink{}), lanScenario(1), DriverOptions{})
	result := d.RunIteration(context.Background(), 0)

	if result.FailureReason != model.FailureFileTransferThroughputLow {
		t.Fatalf("FailureReason = %s, want FILE_TRANSFER_THROUGHPUT_LOW", result.FailureReason)
	}
	if !strings.Contains(result.ResultMessage, "30000 KBps") ||
		!strings.Contains(result.ResultMessage, "40960 KBps") {
		t.Errorf("ResultMessage = %q, want measured and benchmark values", result.ResultMessage)
	}
	if disc.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", disc.disconnects)
	}
}

func TestRunIteration_PriorBTFailureMasksResult(t *testing.T) {
	adv := &fakeAdvertiserDevice{serial: "adv-1",
		staInfo: model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 1200}}
	disc := &fakeDiscovererDevice{serial: "disc-1",
		negotiated: model.ConnectionMediumWifiLan, kbps: 50000,
		connectErrs: []error{errors.New("radio busy")}}

	scenario := lanScenario(1)
	scenario.RequiresBTMultiplex = true
	d := NewDriver(newFixture(adv, disc, &fakeSink{}), scenario, DriverOptions{})
	result := d.RunIteration(context.Background(), 0)

	if !result.FailedWithPriorBT {
		t.Fatalf("FailedWithPriorBT = false, want true")
	}
	if result.FailureReason != model.FailureConnection {
		t.Errorf("FailureReason = %s, want CONNECTION (from the prior BT phase)", result.FailureReason)
	}
	if !strings.HasPrefix(result.ResultMessage, "FAIL (The prior BT connection): ") {
		t.Errorf("ResultMessage = %q, want prior BT prefix", result.ResultMessage)
	}
	// The primary connection ran despite the prior BT failure.
	if disc.connectCalls != 2 {
		t.Errorf("connectCalls = %d, want 2", disc.connectCalls)
	}
	if result.PriorBTQuality == nil {
		t.Errorf("PriorBTQuality not recorded")
	}
}

func TestRunIteration_SourceWifiFailure(t *testing.T) {
	adv := &fakeAdvertiserDevice{serial: "adv-1"}
	disc := &fakeDiscovererDevice{serial: "disc-1", staErr: errors.New("auth failure")}

	scenario := lanScenario(1)
	scenario.WifiSSID = "test-ap"
	scenario.WifiPassword = "hunter2"
	scenario.RequiresBTMultiplex = true
	d := NewDriver(newFixture(adv, disc, &fakeSink{}), scenario, DriverOptions{})
	result := d.RunIteration(context.Background(), 0)

	if result.FailureReason != model.FailureSourceWifiConnection {
		t.Fatalf("FailureReason = %s, want SOURCE_WIFI_CONNECTION", result.FailureReason)
	}
	if adv.staCalls != 0 {
		t.Errorf("advertiser STA attempted after a source wifi failure")
	}
	if disc.connectCalls != 0 {
		t.Errorf("prior BT attempted after a source wifi failure")
	}
	if result.FailedWithPriorBT {
		t.Errorf("FailedWithPriorBT = true, want false")
	}
}

func TestRunIteration_UpgradeFailureTip(t *testing.T) {
	adv := &fakeAdvertiserDevice{serial: "adv-1"}
	disc := &fakeDiscovererDevice{serial: "disc-1", upgradeErr: errors.New("group formation failed")}

	scenario := Scenario{MediumUnderTest: model.MediumUpgradeToWifiDirect, Iterations: 1}
	d := NewDriver(newFixture(adv, disc, &fakeSink{}), scenario, DriverOptions{})
	result := d.RunIteration(context.Background(), 0)

	if result.FailureReason != model.FailureWifiMediumUpgrade {
		t.Fatalf("FailureReason = %s, want WIFI_MEDIUM_UPGRADE", result.FailureReason)
	}
	want := "FAIL: WIFI_MEDIUM_UPGRADE - " + model.MediumUpgradeTriageTip(model.MediumUpgradeToWifiDirect)
	if result.ResultMessage != want {
		t.Errorf("ResultMessage = %q, want %q", result.ResultMessage, want)
	}
}

func TestRunIteration_RadioResetKnobs(t *testing.T) {
	adv := &fakeAdvertiserDevice{serial: "adv-1",
		staInfo: model.WifiConnectionInfo{FrequencyMHz: 5180, MaxSupportedTxLinkSpeedMbps: 1200}}
	disc := &fakeDiscovererDevice{serial: "disc-1",
		negotiated: model.ConnectionMediumWifiLan, kbps: 50000}

	scenario := lanScenario(1)
	scenario.ToggleAirplaneModeTargetSide = true
	scenario.ResetWifiConnection = true
	d := NewDriver(newFixture(adv, disc, &fakeSink{}), scenario, DriverOptions{})
	d.RunIteration(context.Background(), 0)

	if adv.airplaneToggles != 1 {
		t.Errorf("airplaneToggles = %d, want 1", adv.airplaneToggles)
	}
	if adv.forgets != 1 || disc.forgets != 1 {
		t.Errorf("forgets = %d/%d, want 1/1", adv.forgets, disc.forgets)
	}
}

func TestQualityInfoLines(t *testing.T) {
	result := &model.SingleTestResult{
		DiscovererStaExpected: true,
		DiscovererStaLatency:  model.SetDuration(2 * time.Second),
		AdvertiserStaExpected: true,
		AdvertiserStaLatency:  model.SetDuration(3 * time.Second),
		TransferThroughput:    model.SetKBps(51200),
		PriorBTQuality: &model.QualityInfo{
			DiscoveryLatency:  model.SetDuration(time.Second),
			ConnectionLatency: model.SetDuration(time.Second),
		},
	}
	lines := strings.Join(qualityInfoLines(result, true), "\n")
	for _, want := range []string{
		"prior_bt_discovery_latency:",
		"file_transfer_speed: 50.0MBps",
		"src_wifi_connection: 2s",
		"tgt_wifi_connection: 3s",
	} {
		if !strings.Contains(lines, want) {
			t.Errorf("quality info lines missing %q:\n%s", want, lines)
		}
	}
}

func TestSkipReason(t *testing.T) {
	pair := DevicePair{
		AdvertiserAttrs: ac5gAttrs("adv-1"),
		DiscovererAttrs: ac5gAttrs("disc-1"),
	}

	if reason := pair.SkipReason(CapabilityRequirements{
		Discoverer: map[string]bool{"supports_5g": true},
		Advertiser: map[string]bool{"supports_5g": true},
	}); reason != "" {
		t.Errorf("SkipReason = %q, want empty", reason)
	}

	reason := pair.SkipReason(CapabilityRequirements{
		Advertiser: map[string]bool{"supports_dbs": true},
	})
	if !strings.Contains(reason, "advertiser.supports_dbs is disabled") {
		t.Errorf("SkipReason = %q, want supports_dbs mismatch", reason)
	}

	if reason := pair.SkipReason(CapabilityRequirements{
		Discoverer: map[string]bool{"supports_6g": true},
	}); !strings.Contains(reason, "not a known capability") {
		t.Errorf("SkipReason = %q, want unknown capability", reason)
	}
}
