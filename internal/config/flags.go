package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Flags holds the command-line options shared by the cmd/wsmac-* demo
// binaries, parsed the way cmd/direwolf's main.go lays out its flag set.
type Flags struct {
	ConfigFile       string
	Channel          uint8
	PANID            uint16
	LogLevel         string
	PTYSlave         string
	CoordExtendedHex string
}

// ParseFlags defines and parses the common flag set for a demo binary.
// progName is used only in the usage banner.
func ParseFlags(progName string, args []string) (*Flags, error) {
	fs := pflag.NewFlagSet(progName, pflag.ContinueOnError)

	configFile := fs.StringP("config-file", "c", "", "Device/key provisioning file (keys.yaml search path used if empty).")
	channel := fs.Uint8P("channel", "C", 11, "Radio channel number.")
	panID := fs.Uint16P("pan-id", "P", 0xCAFE, "PAN identifier.")
	logLevel := fs.StringP("log-level", "l", "info", "Log level: debug, info, warn, error.")
	ptySlave := fs.StringP("pty-peer", "p", "", "Path of a peer process's pty slave, for serial-loopback demos.")
	coordExtended := fs.StringP("coordinator-extended", "x", "", "Coordinator's 16-hex-character extended address (associating devices only).")
	help := fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", progName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *help {
		fs.Usage()
		os.Exit(0)
	}

	return &Flags{
		ConfigFile:       *configFile,
		Channel:          *channel,
		PANID:            *panID,
		LogLevel:         *logLevel,
		PTYSlave:         *ptySlave,
		CoordExtendedHex: *coordExtended,
	}, nil
}
