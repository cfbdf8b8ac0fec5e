// Command wsmac-coordinator runs a standalone PAN coordinator: it starts
// a superframe, accepts associations, and prints whatever MCPS data its
// associated devices send it.
package main

import (
	"context"
	"encoding/hex"
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

// slotTickInterval and symbolsPerTick scale the superframe's symbol clock
// up to something a person watching the demo can follow; a real radio
// runs aUnitBackoffPeriod-scale ticks far faster than this.
const (
	slotTickInterval = 15 * time.Millisecond
	symbolsPerTick   = 60
)

func main() {
	flags, err := config.ParseFlags("wsmac-coordinator", os.Args[1:])
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

	for _, k := range prov.Own.Keys {
		key, err := config.ParseKey(k.Hex)
		if err != nil {
			logger.Fatal("own key", "index", k.Index, "err", err)
		}
		stack.SecurityAddOwnKey(k.Index, key)
	}
	for _, d := range prov.Devices {
		ext, err := config.ParseExtended(d.ExtendedHex)
		if err != nil {
			logger.Warn("skipping device with bad extended_hex", "name", d.Name, "err", err)
			continue
		}
		for _, k := range d.Keys {
			key, err := config.ParseKey(k.Hex)
			if err != nil {
				logger.Warn("skipping device key", "name", d.Name, "index", k.Index, "err", err)
				continue
			}
			stack.SecurityAddDeviceKey(ext, k.Index, key)
		}
	}

	stack.RegisterRXCallback(func(src wsmac.Address, payload []byte) {
		logger.Info("data received", "src", src, "payload", hex.EncodeToString(payload))
	})
	stack.CoordinatorRegisterCallback(func(dev *wsmac.Device) {
		logger.Info("device associated", "extended", hex.EncodeToString(dev.Addr.Extended[:]), "short", dev.Short)
	})

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	go wsmac.Run(ctx, stack)
	go timer.RunRealtime(ctx, slotTickInterval, symbolsPerTick)

	stack.MLMESetShortAddress(0)
	if err := stack.MLMEStart(flags.PANID, flags.Channel, 6, 6); err != nil {
		logger.Fatal("starting coordinator", "err", err)
	}
	logger.Info("coordinator started", "pan", fmt.Sprintf("0x%04X", flags.PANID), "channel", flags.Channel)

	<-ctx.Done()
	logger.Info("shutting down")
}
