package d2d

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/prometheusx"

	"github.com/betocq/betocq/internal/metrics"
	"github.com/betocq/betocq/internal/persistence"
	"github.com/betocq/betocq/pkg/nc/model"
	"github.com/betocq/betocq/pkg/nc/spec"
	"github.com/betocq/betocq/pkg/stats"
	"github.com/betocq/betocq/pkg/version"
)

// Summarize aggregates the recorded iterations into the run verdict and
// detailed report, emits the summary to the sink and archives it. The pass
// threshold is non-strict: success counts equal to the rounded-down target
// pass. The returned error carries the final FAIL message when the target
// was missed; it is the run's single source of truth for exit status.
func (d *Driver) Summarize() (RunSummary, error) {
	successCount := 0
	for _, r := range d.results {
		if r.FailureReason == model.FailureSuccess {
			successCount++
		}
	}
	required := d.scenario.Iterations
	passed := successCount >= int(float64(required)*spec.SuccessRateTarget)

	message := "PASS"
	verdict := "pass"
	if !passed {
		message = fmt.Sprintf("FAIL: low successes - %d", successCount)
		verdict = "fail"
	}

	detailed := []string{
		fmt.Sprintf("Required Iterations: %d", required),
		fmt.Sprintf("Finished Iterations: %d", len(d.results)),
		"Failed Iterations:",
	}
	detailed = append(detailed, d.failedIterationMessages()...)
	detailed = append(detailed, "File Transfer Connection Stats:")
	detailed = append(detailed, d.transferConnectionStats()...)
	if d.scenario.usePriorBT() {
		detailed = append(detailed, "Prior BT Connection Stats:")
		detailed = append(detailed, d.priorBTConnectionStats()...)
	}

	summary := RunSummary{
		TestResult:    message,
		Passed:        passed,
		SuccessCount:  successCount,
		SourceDevice:  d.fixture.Pair.DiscovererAttrs.Lines(),
		TargetDevice:  d.fixture.Pair.AdvertiserAttrs.Lines(),
		DetailedStats: detailed,
	}

	metrics.RunVerdicts.WithLabelValues(d.scenario.MediumUnderTest.String(), verdict).Inc()
	d.archiveRun(summary)
	d.fixture.Sink.EmitSummary(summary)

	if !passed {
		return summary, errors.New(message)
	}
	return summary, nil
}

func (d *Driver) failedIterationMessages() []string {
	var messages []string
	for _, r := range d.results {
		if r.FailureReason != model.FailureSuccess {
			messages = append(messages, fmt.Sprintf("  - %d: %s", r.TestIteration, r.ResultMessage))
		}
	}
	if len(messages) == 0 {
		return []string{"  - NA"}
	}
	return messages
}

func (d *Driver) transferConnectionStats() []string {
	discovery := stats.Latency(d.perf.TransferDiscoveryLatencies)
	connection := stats.Latency(d.perf.TransferConnectionLatencies)
	transfer := stats.Transfer(d.perf.TransferThroughputsKBps)
	lines := []string{
		latencyStatsLine("Discovery", "discovery", discovery),
		latencyStatsLine("Connection", "connections", connection),
		fmt.Sprintf("  - Min / Median / Max Speed (%d transfer): %g / %g / %g MBps",
			transfer.SuccessCount, transfer.Min, transfer.Median, transfer.Max),
	}
	if d.scenario.MediumUnderTest.IsHighQuality() {
		upgrade := stats.Latency(d.perf.MediumUpgradeLatencies)
		lines = append(lines,
			latencyStatsLine("Upgrade", "upgrade", upgrade),
			"  - Upgrade Medium Stats:",
		)
		lines = append(lines, d.upgradedMediumTally()...)
	}
	return lines
}

func (d *Driver) priorBTConnectionStats() []string {
	discovery := stats.Latency(d.perf.PriorBTDiscoveryLatencies)
	connection := stats.Latency(d.perf.PriorBTConnectionLatencies)
	return []string{
		latencyStatsLine("Discovery", "discovery", discovery),
		latencyStatsLine("Connection", "connections", connection),
	}
}

// upgradedMediumTally counts the negotiated transfer mediums across
// iterations, in order of first appearance.
func (d *Driver) upgradedMediumTally() []string {
	counts := map[model.ConnectionMedium]int{}
	var order []model.ConnectionMedium
	for _, m := range d.perf.UpgradedTransferMediums {
		if m == model.ConnectionMediumUnknown {
			continue
		}
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}
	lines := make([]string, 0, len(order))
	for _, m := range order {
		lines = append(lines, fmt.Sprintf("    - %s: %d", m, counts[m]))
	}
	return lines
}

func latencyStatsLine(label, noun string, s model.ResultStats) string {
	return fmt.Sprintf("  - Min / Median / Max %s Latency (%d %s): %g / %g / %gs",
		label, s.SuccessCount, noun, s.Min, s.Median, s.Max)
}

func (d *Driver) archiveRun(summary RunSummary) {
	if d.dataDir == "" {
		return
	}
	archive := model.RunArchive{
		GitShortCommit:  prometheusx.GitShortCommit,
		Version:         version.Version,
		RunID:           d.runID,
		StartTime:       d.startTime,
		EndTime:         time.Now(),
		MediumUnderTest: d.scenario.MediumUnderTest.String(),
		Iterations:      d.scenario.Iterations,
		SuccessCount:    summary.SuccessCount,
		TestResult:      summary.TestResult,
		SourceDevice:    d.fixture.Pair.DiscovererAttrs,
		TargetDevice:    d.fixture.Pair.AdvertiserAttrs,
		DetailedStats:   summary.DetailedStats,
	}
	if _, err := persistence.WriteDataFile(d.dataDir, "run", "", d.runID, archive); err != nil {
		log.Error("failed to archive run", "runID", d.runID, "error", err)
	}
}
