package d2d

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/m-lab/go/prometheusx"

	"github.com/betocq/betocq/internal/metrics"
	"github.com/betocq/betocq/internal/persistence"
	"github.com/betocq/betocq/internal/registry"
	"github.com/betocq/betocq/pkg/benchmark"
	"github.com/betocq/betocq/pkg/nc/model"
	"github.com/betocq/betocq/pkg/nc/spec"
	"github.com/betocq/betocq/pkg/session"
	"github.com/betocq/betocq/pkg/version"
)

// Scenario configures one benchmark run. The zero values of AdvertisingMedium
// and ConnectionMedium select BLE-only advertising and a BT-only initial
// connection; sizes, timeouts and keep-alive fall back to the medium's
// defaults when unset.
type Scenario struct {
	// MediumUnderTest is the upgrade medium whose performance is measured.
	MediumUnderTest model.Medium

	AdvertisingMedium model.Medium
	ConnectionMedium  model.Medium

	// WifiSSID and WifiPassword, when set, make both devices associate with
	// the test AP before the primary connection.
	WifiSSID     string
	WifiPassword string

	// RequiresBTMultiplex establishes a prior Bluetooth-only connection
	// before the primary one. ForceDisableBTMultiplex overrides it for
	// scenarios where the medium under test cannot coexist with BT.
	RequiresBTMultiplex     bool
	ForceDisableBTMultiplex bool

	Is2GMedium bool
	IsDBSMode  bool
	IsMCCMode  bool

	// ToggleAirplaneModeTargetSide resets the advertiser's radio state
	// before each iteration.
	ToggleAirplaneModeTargetSide bool

	// ResetWifiConnection forgets saved Wi-Fi networks on both devices
	// before each iteration.
	ResetWifiConnection bool

	PayloadType       model.PayloadType
	TransferSizeBytes int64
	TransferTimeout   time.Duration

	KeepAlive spec.KeepAliveParams

	Iterations int
}

func (s Scenario) advertisingMedium() model.Medium {
	if s.AdvertisingMedium == model.MediumAuto {
		return model.MediumBLEOnly
	}
	return s.AdvertisingMedium
}

func (s Scenario) connectionMedium() model.Medium {
	if s.ConnectionMedium == model.MediumAuto {
		return model.MediumBTOnly
	}
	return s.ConnectionMedium
}

func (s Scenario) keepAlive() spec.KeepAliveParams {
	if s.KeepAlive == (spec.KeepAliveParams{}) {
		return spec.DefaultKeepAlive()
	}
	return s.KeepAlive
}

func (s Scenario) usePriorBT() bool {
	return s.RequiresBTMultiplex && !s.ForceDisableBTMultiplex
}

func (s Scenario) transferParams() (int64, time.Duration, model.PayloadType) {
	size := s.TransferSizeBytes
	timeout := s.TransferTimeout
	if size == 0 {
		if s.MediumUnderTest.IsHighQuality() {
			size = spec.TransferFileSize500MB
		} else {
			size = spec.TransferFileSize500KB
		}
	}
	if timeout == 0 {
		if s.MediumUnderTest.IsHighQuality() {
			timeout = spec.Wifi500MPayloadTransferTimeout
		} else {
			timeout = spec.BT500KPayloadTransferTimeout
		}
	}
	payloadType := s.PayloadType
	if payloadType == "" {
		payloadType = model.PayloadTypeFile
	}
	return size, timeout, payloadType
}

// DriverOptions are the run-context knobs of a Driver. All fields are
// optional: RunID defaults to a fresh UUID, an empty DataDir disables
// archival and a nil Registry disables endpoint tracking.
type DriverOptions struct {
	RunID    string
	DataDir  string
	Registry *registry.Registry
}

// Driver executes benchmark iterations against a fixture and accumulates
// their results. Iterations run strictly sequentially: the two devices and
// their radio state are exclusively owned by the running iteration.
type Driver struct {
	fixture  Fixture
	scenario Scenario

	runID   string
	dataDir string
	reg     *registry.Registry

	startTime time.Time
	results   []model.SingleTestResult
	perf      model.PerformanceTestMetrics
}

// NewDriver returns a Driver running scenario against fixture.
func NewDriver(fixture Fixture, scenario Scenario, opts DriverOptions) *Driver {
	if fixture.Sink == nil {
		fixture.Sink = LogSink{}
	}
	if scenario.Iterations <= 0 {
		scenario.Iterations = 1
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Driver{
		fixture:  fixture,
		scenario: scenario,
		runID:    runID,
		dataDir:  opts.DataDir,
		reg:      opts.Registry,
	}
}

// Results returns the per-iteration results recorded so far.
func (d *Driver) Results() []model.SingleTestResult {
	return d.results
}

// Run executes every iteration of the scenario, sleeping between iterations
// to let the device radios settle, and returns the run summary. The returned
// error is non-nil when the success-rate target was missed; it carries the
// final FAIL message.
func (d *Driver) Run(ctx context.Context) (RunSummary, error) {
	d.startTime = time.Now()
	if d.fixture.Recorder != nil {
		if err := d.fixture.Recorder.Start(ctx); err != nil {
			log.Warn("recorder failed to start", "error", err)
		} else {
			defer func() {
				if err := d.fixture.Recorder.Stop(); err != nil {
					log.Warn("recorder failed to stop", "error", err)
				}
			}()
		}
	}

	for i := 0; i < d.scenario.Iterations; i++ {
		d.RunIteration(ctx, i)
		if i == d.scenario.Iterations-1 {
			break
		}
		select {
		case <-ctx.Done():
			log.Warn("run interrupted", "finished", len(d.results), "error", ctx.Err())
			return d.Summarize()
		case <-time.After(spec.DelayBetweenIterations):
		}
	}
	return d.Summarize()
}

// RunIteration executes one benchmark iteration end to end and records its
// result. Teardown of both connection sessions and the result report run on
// every exit path.
func (d *Driver) RunIteration(ctx context.Context, iteration int) (result model.SingleTestResult) {
	start := time.Now()
	result = model.SingleTestResult{
		TestIteration: iteration,
		FailureReason: model.FailureUninitialized,
	}

	adv := d.fixture.Pair.Advertiser
	disc := d.fixture.Pair.Discoverer

	usePriorBT := d.scenario.usePriorBT()
	priorReason := model.FailureSuccess
	activeReason := model.FailureUninitialized
	var throughputDetail string

	var priorSess, activeSess *session.Wrapper
	defer func() {
		if priorSess != nil {
			priorSess.Disconnect(ctx)
		}
		if activeSess != nil {
			activeSess.Disconnect(ctx)
		}

		// A prior-BT failure masks whatever the primary connection did.
		if usePriorBT && priorReason != model.FailureSuccess {
			result.FailureReason = priorReason
			result.FailedWithPriorBT = true
		} else {
			result.FailureReason = activeReason
		}
		result.ResultMessage = d.resultMessage(usePriorBT, priorReason, activeReason, throughputDetail)

		d.results = append(d.results, result)
		d.perf.Record(&result, usePriorBT)
		metrics.Iterations.WithLabelValues(
			d.scenario.MediumUnderTest.String(), result.FailureReason.String()).Inc()
		d.archiveIteration(start, result)
		d.fixture.Sink.EmitIteration(IterationReport{
			Iteration:   iteration,
			Result:      result.ResultMessage,
			QualityInfo: qualityInfoLines(&result, usePriorBT),
		})
	}()

	if d.scenario.ToggleAirplaneModeTargetSide {
		if err := adv.ToggleAirplaneMode(ctx); err != nil {
			log.Warn("airplane mode toggle failed", "serial", adv.Serial(), "error", err)
		}
	}
	if d.scenario.ResetWifiConnection {
		if err := adv.ForgetWifiNetworks(ctx); err != nil {
			log.Warn("wifi reset failed", "serial", adv.Serial(), "error", err)
		}
		if err := disc.ForgetWifiNetworks(ctx); err != nil {
			log.Warn("wifi reset failed", "serial", disc.Serial(), "error", err)
		}
	}

	if d.scenario.WifiSSID != "" {
		result.DiscovererStaExpected = true
		latency, err := disc.ConnectToWifiStaTillSuccess(ctx, d.scenario.WifiSSID, d.scenario.WifiPassword)
		if err != nil {
			activeReason = model.FailureSourceWifiConnection
			log.Error("source wifi association failed", "error", err)
			return result
		}
		result.DiscovererStaLatency = model.SetDuration(latency)
	}

	// A failed prior BT connection does not abort the iteration. It gates
	// only the final verdict through the masking above.
	if usePriorBT {
		priorSess = session.New(adv, disc,
			model.MediumBLEOnly, model.MediumBTOnly, model.MediumBTOnly)
		err := priorSess.Start(ctx, session.StartOptions{
			Timeouts:    spec.FirstConnectionTimeouts(),
			UpgradeType: model.UpgradeTypeNonDisruptive,
			KeepAlive:   spec.DefaultKeepAlive(),
		})
		priorReason = priorSess.FailureReason
		quality := priorSess.Quality
		result.PriorBTQuality = &quality
		if err != nil {
			log.Error("prior BT connection failed", "error", err)
		}
	}

	if d.scenario.WifiSSID != "" {
		result.AdvertiserStaExpected = true
		latency, err := adv.ConnectToWifiStaTillSuccess(ctx, d.scenario.WifiSSID, d.scenario.WifiPassword)
		if err != nil {
			activeReason = model.FailureTargetWifiConnection
			log.Error("target wifi association failed", "error", err)
			return result
		}
		result.AdvertiserStaLatency = model.SetDuration(latency)
	}

	timeouts := spec.FirstConnectionTimeouts()
	if priorSess != nil {
		timeouts = spec.SecondConnectionTimeouts()
	}
	activeSess = session.New(adv, disc,
		d.scenario.advertisingMedium(), d.scenario.connectionMedium(), d.scenario.MediumUnderTest)
	err := activeSess.Start(ctx, session.StartOptions{
		Timeouts:    timeouts,
		UpgradeType: model.UpgradeTypeDisruptive,
		KeepAlive:   d.scenario.keepAlive(),
	})
	result.TransferQuality = activeSess.Quality
	activeReason = activeSess.FailureReason
	if err != nil {
		log.Error("primary connection failed", "error", err)
		return result
	}
	if d.reg != nil {
		d.reg.Observe(activeSess.EndpointID(), d.runID, d.scenario.MediumUnderTest)
	}

	size, timeout, payloadType := d.scenario.transferParams()
	throughput, err := activeSess.TransferFile(ctx, size, timeout, payloadType)
	result.TransferThroughput = throughput
	activeReason = activeSess.FailureReason
	if err != nil {
		log.Error("file transfer failed", "error", err)
		return result
	}
	metrics.TransferredBytes.WithLabelValues(d.scenario.MediumUnderTest.String()).Add(float64(size))

	// The benchmark depends on which medium the upgrade actually negotiated,
	// so it is recomputed here rather than at setup.
	staInfo, err := adv.WifiConnectionInfo(ctx)
	if err != nil {
		log.Warn("reading wifi connection info failed", "error", err)
	}
	minKBps := benchmark.MinThroughputKBps(benchmark.Params{
		Discoverer:    d.fixture.Pair.DiscovererAttrs,
		Advertiser:    d.fixture.Pair.AdvertiserAttrs,
		Is2GMedium:    d.scenario.Is2GMedium,
		IsDBSMode:     d.scenario.IsDBSMode,
		IsMCCMode:     d.scenario.IsMCCMode,
		StaInfo:       staInfo,
		UpgradeMedium: activeSess.Quality.UpgradeMedium,
	})
	if throughput.KBps < minKBps {
		activeReason = model.FailureFileTransferThroughputLow
		throughputDetail = fmt.Sprintf(
			"the measured throughput %d KBps is lower than the expected benchmark %d KBps",
			throughput.KBps, minKBps)
		log.Error("throughput below benchmark",
			"measuredKBps", throughput.KBps, "benchmarkKBps", minKBps)
		return result
	}

	activeReason = model.FailureSuccess
	return result
}

func (d *Driver) resultMessage(usePriorBT bool, priorReason, activeReason model.FailureReason,
	throughputDetail string) string {
	if usePriorBT && priorReason != model.FailureSuccess {
		return fmt.Sprintf("FAIL (The prior BT connection): %s - %s",
			priorReason, priorReason.TriageTip())
	}
	switch activeReason {
	case model.FailureSuccess:
		return "PASS"
	case model.FailureWifiMediumUpgrade:
		return fmt.Sprintf("FAIL: %s - %s", activeReason,
			model.MediumUpgradeTriageTip(d.scenario.MediumUnderTest))
	case model.FailureFileTransferThroughputLow:
		if throughputDetail != "" {
			return fmt.Sprintf("FAIL: %s - %s", activeReason, throughputDetail)
		}
		return fmt.Sprintf("FAIL: %s - %s", activeReason, activeReason.TriageTip())
	default:
		return fmt.Sprintf("FAIL: %s - %s", activeReason, activeReason.TriageTip())
	}
}

func (d *Driver) archiveIteration(start time.Time, result model.SingleTestResult) {
	if d.dataDir == "" {
		return
	}
	archive := model.IterationArchive{
		GitShortCommit:  prometheusx.GitShortCommit,
		Version:         version.Version,
		RunID:           d.runID,
		UUID:            uuid.NewString(),
		StartTime:       start,
		EndTime:         time.Now(),
		MediumUnderTest: d.scenario.MediumUnderTest.String(),
		Result:          result,
	}
	_, err := persistence.WriteDataFile(d.dataDir, "iteration", "", archive.UUID, archive)
	if err != nil {
		log.Error("failed to archive iteration", "iteration", result.TestIteration, "error", err)
	}
}
