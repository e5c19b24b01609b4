// Command zcrawl crawls the live Zcash peer-to-peer network, recording
// topology and version telemetry into a Known-Network graph, and optionally
// exposes it over JSON-RPC while it runs.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ordishs/gocore"
	"github.com/runziggurat/zcash/internal/config"
	"github.com/runziggurat/zcash/internal/crawler"
	"github.com/runziggurat/zcash/internal/metrics"
	"github.com/runziggurat/zcash/internal/network"
	"github.com/runziggurat/zcash/internal/rpcserver"
	"github.com/runziggurat/zcash/internal/servicemanager"
	"github.com/runziggurat/zcash/internal/synthpeer"
	"github.com/runziggurat/zcash/internal/ulogger"
	"github.com/runziggurat/zcash/internal/wire"
	"github.com/urfave/cli/v2"
)

const (
	progname = "zcrawl"
	version  = "0.1.0"
)

func main() {
	gocore.SetInfo(progname, version, "")

	app := &cli.App{
		Name:  progname,
		Usage: "crawl the Zcash peer-to-peer network and report topology metrics",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "crawl-interval",
				Aliases: []string{"c"},
				Value:   5,
				Usage:   "seconds between crawl ticks",
			},
			&cli.StringSliceFlag{
				Name:     "seed-addrs",
				Aliases:  []string{"s"},
				Required: true,
				Usage:    "comma-separated host:port seed addresses",
			},
			&cli.StringFlag{
				Name:    "rpc-addr",
				Aliases: []string{"r"},
				Value:   "",
				Usage:   "address to serve JSON-RPC on; empty disables the RPC surface",
			},
			&cli.StringFlag{
				Name:  "network",
				Value: "mainnet",
				Usage: "mainnet, testnet, or regtest",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Value: "crawler-log.txt",
				Usage: "file to dump the final metrics snapshot to on shutdown",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := ulogger.New(progname)

	settings := config.NewSettings()
	settings.Network.Magic = config.MagicForNetwork(c.String("network"))
	settings.Crawler.SeedAddrs = c.StringSlice("seed-addrs")
	settings.Crawler.CrawlInterval = time.Duration(c.Int("crawl-interval")) * time.Second
	settings.RPC.Address = c.String("rpc-addr")

	sessionID := uuid.NewString()
	log.Infof("starting crawl session %s against %d seed(s)", sessionID, len(settings.Crawler.SeedAddrs))

	kn := network.New()
	codec := wire.NewCodec(settings.Network.Magic, settings.Codec.MaxMessageLen)

	bans := network.NewBanList(log.New("banlist"))
	tracker := network.NewMisbehaviorTracker(bans, 100, 24*time.Hour)

	localAddr, err := wire.NetworkAddressFromString("0.0.0.0:0", 0)
	if err != nil {
		return err
	}

	peer := synthpeer.Start(synthpeer.PeerConfig{
		Codec: codec,
		Version: wire.VersionPayload{
			Version:     settings.Handshake.MinVersion,
			Services:    0,
			Timestamp:   time.Now().Unix(),
			AddrRecv:    localAddr,
			AddrFrom:    localAddr,
			UserAgent:   fmt.Sprintf("/%s:%s/", progname, version),
			StartHeight: 0,
			Relay:       false,
		},
		MinVersion: settings.Handshake.MinVersion,
		BanList:    bans,
	}, log.New("synthpeer"))
	defer peer.Shutdown()

	crawl := crawler.New(settings.Crawler, kn, peer, log.New("crawler"))
	crawl.SetMisbehaviorTracker(tracker)

	sm := servicemanager.NewServiceManager(context.Background(), log)
	if err := sm.AddService("crawler", &crawlerService{c: crawl, kn: kn}); err != nil {
		return err
	}

	if settings.RPC.Address != "" {
		rpc := rpcserver.New(settings.RPC.Address, kn, log.New("rpcserver"), settings.RPC.MaxResponseBodyBytes)
		if err := sm.AddService("rpcserver", &rpcService{s: rpc, addr: settings.RPC.Address}); err != nil {
			return err
		}
		log.Infof("JSON-RPC listening on %s", settings.RPC.Address)
	}

	waitErr := sm.Wait()

	dumpFinalMetrics(kn, c.String("log-file"), sessionID, log)

	return waitErr
}

func dumpFinalMetrics(kn *network.KnownNetwork, path, sessionID string, log ulogger.Logger) {
	snap := metrics.Compute(kn)

	report := fmt.Sprintf("crawl session %s\n%s", sessionID, snap.String())
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		log.Errorf("failed to write %s: %v", path, err)
		return
	}

	log.Infof("wrote final metrics to %s", path)
}
