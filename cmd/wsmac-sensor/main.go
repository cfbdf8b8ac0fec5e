// Command wsmac-sensor runs a standalone reduced-function device: it
// associates with a coordinator, then periodically reports a synthetic
// reading via MCPSSendData.
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
	reportInterval   = 3 * time.Second
)

func main() {
	flags, err := config.ParseFlags("wsmac-sensor", os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if flags.CoordExtendedHex == "" {
		fmt.Fprintln(os.Stderr, "wsmac-sensor: --coordinator-extended is required")
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
	coordExtended, err := config.ParseExtended(flags.CoordExtendedHex)
	if err != nil {
		logger.Fatal("coordinator-extended", "err", err)
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

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	go wsmac.Run(ctx, stack)
	go timer.RunRealtime(ctx, slotTickInterval, symbolsPerTick)

	associated := make(chan uint16, 1)
	const coordShortAddress = 0 // coordinator is always short address 0 in these demos
	stack.MLMEAssociate(flags.Channel, flags.PANID, coordShortAddress, coordExtended, wsmac.CapabilityInfo{
		AllocateAddress: true,
	}, func(status wsmac.AssociationStatus, shortAddress uint16) {
		if status != wsmac.AssociationSuccess {
			logger.Fatal("association failed", "status", status)
		}
		logger.Info("associated", "short_address", shortAddress)
		associated <- shortAddress
	})

	var short uint16
	select {
	case short = <-associated:
	case <-ctx.Done():
		return
	}

	stack.RegisterConfirmCallback(func(handle uint8, status wsmac.MCPSStatus) {
		logger.Info("send confirm", "handle", handle, "status", status)
	})

	dest := wsmac.ShortAddr(flags.PANID, coordShortAddress)
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reading := fmt.Sprintf("short=%d temp=%dC", short, 20+int(time.Now().Unix()%5))
			stack.MCPSSendData(dest, []byte(reading), true, false)
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		}
	}
}
