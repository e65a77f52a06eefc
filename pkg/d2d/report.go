package d2d

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/betocq/betocq/pkg/nc/model"
)

// IterationReport is the structured per-iteration record emitted to the
// reporting sink.
type IterationReport struct {
	Iteration int

	// Result is the iteration's result message: "PASS" or a FAIL line
	// carrying the failure reason and its triage tip.
	Result string

	// QualityInfo holds the stage latencies, negotiated medium and measured
	// speed as key: value lines.
	QualityInfo []string
}

// RunSummary is the aggregate record of a finished run.
type RunSummary struct {
	// TestResult is "PASS" or "FAIL: low successes - <count>".
	TestResult string

	Passed       bool
	SuccessCount int

	SourceDevice []string
	TargetDevice []string

	// DetailedStats holds the iteration tally, failed-iteration messages and
	// the per-series latency and throughput stats blocks.
	DetailedStats []string
}

// Sink receives per-iteration reports and the run summary.
type Sink interface {
	EmitIteration(IterationReport)
	EmitSummary(RunSummary)
}

// LogSink writes reports to the process log.
type LogSink struct{}

func (LogSink) EmitIteration(r IterationReport) {
	log.Info("iteration finished", "iteration", r.Iteration, "result", r.Result)
	for _, line := range r.QualityInfo {
		log.Info("  " + line)
	}
}

func (LogSink) EmitSummary(s RunSummary) {
	log.Info("run finished", "result", s.TestResult, "successes", s.SuccessCount)
	for _, line := range s.DetailedStats {
		log.Info(line)
	}
}

// qualityInfoLines renders the report lines for one iteration result.
func qualityInfoLines(r *model.SingleTestResult, usePriorBT bool) []string {
	var lines []string
	if usePriorBT && r.PriorBTQuality != nil {
		for _, line := range r.PriorBTQuality.Lines() {
			lines = append(lines, "prior_bt_"+line)
		}
	}
	lines = append(lines, r.TransferQuality.Lines()...)

	speed := -1.0
	if r.TransferThroughput.Valid {
		speed = r.TransferThroughput.MBps()
	}
	lines = append(lines, fmt.Sprintf("file_transfer_speed: %.1fMBps", speed))

	if r.DiscovererStaExpected {
		lines = append(lines, fmt.Sprintf("src_wifi_connection: %.0fs",
			r.DiscovererStaLatency.Seconds()))
	}
	if r.AdvertiserStaExpected {
		lines = append(lines, fmt.Sprintf("tgt_wifi_connection: %.0fs",
			r.AdvertiserStaLatency.Seconds()))
	}
	return lines
}
