// Command wsmac-scan performs a one-shot active scan over every channel
// in the 2.4GHz band (11-26) and prints whatever coordinators answer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wsmac/wsmac/internal/config"
	"github.com/wsmac/wsmac/internal/demo"
	"github.com/wsmac/wsmac/internal/radio"
	"github.com/wsmac/wsmac/internal/security"
	wsmac "github.com/wsmac/wsmac/mac"
)

const (
	slotTickInterval = 15 * time.Millisecond
	symbolsPerTick   = 60

	// allChannels sets bits 11-26, the whole 2.4GHz channel page.
	allChannels  = 0x07FFF800
	scanDuration = 4 // ((1<<4)+1)*60 symbols dwell time per channel
)

func main() {
	flags, err := config.ParseFlags("wsmac-scan", os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	logger, err := demo.NewLogger(flags.LogLevel, "%Y-%m-%d %H:%M:%S")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	prov, err := config.Load(flags.ConfigFile)
	if err != nil {
		logger.Fatal("loading provisioning file", "err", err)
	}
	ownExtended, err := config.ParseExtended(prov.Own.ExtendedHex)
	if err != nil {
		logger.Fatal("own.extended_hex", "err", err)
	}

	transport, err := demo.OpenTransport(logger, flags.PTYSlave)
	if err != nil {
		logger.Fatal("opening transport", "err", err)
	}
	defer transport.Close()

	timer := radio.NewSimulatedMACTimer()
	aes := security.NewSoftwareAESEngine()
	stack := wsmac.NewStack(ownExtended, transport.Radio, timer, aes, wsmac.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	go wsmac.Run(ctx, stack)
	go timer.RunRealtime(ctx, slotTickInterval, symbolsPerTick)

	done := make(chan struct{})
	err = stack.MLMEScan(wsmac.ScanTypeActive, allChannels, scanDuration, func(results []wsmac.ScanResult) {
		defer close(done)
		if len(results) == 0 {
			logger.Info("scan complete, no coordinators heard")
			return
		}
		for _, r := range results {
			logger.Info("coordinator found",
				"pan", fmt.Sprintf("0x%04X", r.PANID),
				"channel", r.Channel,
				"coord_short", r.CoordShortAddress,
				"association_permitted", r.AssociationPermitted)
		}
	})
	if err != nil {
		logger.Fatal("starting scan", "err", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}
