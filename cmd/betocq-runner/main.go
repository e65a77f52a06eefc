// The betocq-runner command runs a device-to-device connection performance
// scenario: it drives a discoverer/advertiser device pair through a number of
// benchmark iterations over the selected medium and prints the run verdict.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/betocq/betocq/internal/registry"
	"github.com/betocq/betocq/internal/snippet"
	"github.com/betocq/betocq/pkg/d2d"
	"github.com/betocq/betocq/pkg/nc/model"
)

var (
	flagAdvertiser       = flag.String("advertiser", "", "Advertiser agent address (host:port)")
	flagAdvertiserSerial = flag.String("advertiser-serial", "", "Advertiser device serial")
	flagDiscoverer       = flag.String("discoverer", "", "Discoverer agent address (host:port)")
	flagDiscovererSerial = flag.String("discoverer-serial", "", "Discoverer device serial")

	flagMedium     = flag.String("medium", "WIFILAN_ONLY", "Upgrade medium under test")
	flagIterations = flag.Int("iterations", 10, "Number of benchmark iterations")

	flagSSID     = flag.String("wifi-ssid", "", "Test AP SSID; empty skips STA association")
	flagPassword = flag.String("wifi-password", "", "Test AP password")

	flagBTMultiplex = flag.Bool("bt-multiplex", false, "Establish a prior BT connection before the primary one")
	flag2G          = flag.Bool("2g", false, "The medium under test operates on the 2.4 GHz band")
	flagDBS         = flag.Bool("dbs", false, "The advertiser runs STA and D2D on different bands")
	flagMCC         = flag.Bool("mcc", false, "The scenario forces multi-channel concurrency")

	flagToggleAirplane = flag.Bool("toggle-airplane-mode", false, "Toggle airplane mode on the advertiser before each iteration")
	flagResetWifi      = flag.Bool("reset-wifi", false, "Forget saved wifi networks before each iteration")

	flagDataDir     = flag.String("datadir", "./data", "Directory to store archival data in")
	flagEndpointTTL = flag.Duration("endpoint-ttl", 5*time.Minute, "TTL of endpoint registry entries")

	flagRequire5G = flag.Bool("require-5g", false, "Skip the run unless both devices support 5 GHz wifi")
)

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "failed to read flags from the environment")

	log.SetReportTimestamp(true)
	log.SetLevel(log.DebugLevel)

	medium, err := model.ParseMedium(*flagMedium)
	rtx.Must(err, "invalid -medium")
	if *flagAdvertiser == "" || *flagDiscoverer == "" {
		log.Fatal("both -advertiser and -discoverer must be set")
	}

	promSrv := prometheusx.MustServeMetrics()
	defer promSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	advertiser, err := snippet.Dial(ctx, *flagAdvertiser, *flagAdvertiserSerial)
	rtx.Must(err, "failed to connect to the advertiser agent")
	defer advertiser.Close()
	discoverer, err := snippet.Dial(ctx, *flagDiscoverer, *flagDiscovererSerial)
	rtx.Must(err, "failed to connect to the discoverer agent")
	defer discoverer.Close()

	advAttrs, err := advertiser.Attributes(ctx)
	rtx.Must(err, "failed to read advertiser attributes")
	discAttrs, err := discoverer.Attributes(ctx)
	rtx.Must(err, "failed to read discoverer attributes")
	for _, line := range append(advAttrs.Lines(), discAttrs.Lines()...) {
		log.Debug(line)
	}

	pair := d2d.DevicePair{
		Advertiser:      advertiser,
		Discoverer:      discoverer,
		AdvertiserAttrs: advAttrs,
		DiscovererAttrs: discAttrs,
	}
	if *flagRequire5G {
		reqs := d2d.CapabilityRequirements{
			Discoverer: map[string]bool{"supports_5g": true},
			Advertiser: map[string]bool{"supports_5g": true},
		}
		if reason := pair.SkipReason(reqs); reason != "" {
			log.Error("run skipped", "reason", reason)
			os.Exit(2)
		}
	}

	reg := registry.New(*flagDataDir, *flagEndpointTTL)
	defer reg.Stop()

	driver := d2d.NewDriver(
		d2d.Fixture{Pair: pair, Sink: d2d.LogSink{}},
		d2d.Scenario{
			MediumUnderTest:              medium,
			WifiSSID:                     *flagSSID,
			WifiPassword:                 *flagPassword,
			RequiresBTMultiplex:          *flagBTMultiplex,
			Is2GMedium:                   *flag2G,
			IsDBSMode:                    *flagDBS,
			IsMCCMode:                    *flagMCC,
			ToggleAirplaneModeTargetSide: *flagToggleAirplane,
			ResetWifiConnection:          *flagResetWifi,
			Iterations:                   *flagIterations,
		},
		d2d.DriverOptions{DataDir: *flagDataDir, Registry: reg},
	)

	summary, err := driver.Run(ctx)
	log.Info("advertiser control link", "health", advertiser.ControlLinkHealth())
	log.Info("discoverer control link", "health", discoverer.ControlLinkHealth())
	if err != nil {
		log.Error("run failed", "result", summary.TestResult)
		os.Exit(1)
	}
	log.Info("run passed", "successes", summary.SuccessCount)
}
