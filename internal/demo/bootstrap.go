// Package demo holds the bootstrap plumbing shared by the cmd/wsmac-*
// binaries: logger setup and the pty-loopback transport dance, so each
// main.go can stay focused on the MAC operation it demonstrates.
package demo

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/wsmac/wsmac/internal/radio"
)

// strftimeWriter prepends a strftime-rendered timestamp to every write,
// the same formatting mechanism the teacher's xmit.go/tq.go use to stamp
// their own output lines (strftime.Format(pattern, time.Now())).
type strftimeWriter struct {
	out     io.Writer
	pattern *strftime.Strftime
}

func (w *strftimeWriter) Write(p []byte) (int, error) {
	if _, err := fmt.Fprintf(w.out, "%s ", w.pattern.FormatString(time.Now())); err != nil {
		return 0, err
	}
	return w.out.Write(p)
}

// NewLogger builds a charmbracelet/log logger at the given level
// ("debug", "info", "warn", "error"). When timePattern is non-empty, each
// line is prefixed with that strftime-formatted timestamp instead of the
// logger's own; the teacher's log-file naming uses the same pattern
// library for the same reason — stock Go time layouts aren't what the
// rest of this codebase reaches for.
func NewLogger(level, timePattern string) (*log.Logger, error) {
	var out io.Writer = os.Stderr
	reportTimestamp := true

	if timePattern != "" {
		pat, err := strftime.New(timePattern)
		if err != nil {
			return nil, fmt.Errorf("demo: invalid time pattern %q: %w", timePattern, err)
		}
		out = &strftimeWriter{out: out, pattern: pat}
		reportTimestamp = false
	}

	l := log.NewWithOptions(out, log.Options{ReportTimestamp: reportTimestamp})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("demo: %w", err)
	}
	l.SetLevel(lvl)
	return l, nil
}

// Transport is a pty-loopback Radio plus whatever file descriptors need
// closing when the demo exits.
type Transport struct {
	Radio *radio.PTYRadio
	files []*os.File
}

// Close releases the transport's file descriptors.
func (t *Transport) Close() {
	for _, f := range t.files {
		f.Close()
	}
}

// OpenTransport connects to an existing pty peer path if peerPath is
// non-empty, otherwise opens a fresh pty pair and logs the slave's path
// for a peer process to connect to — the same master/slave roles the
// teacher's kisspt_init assigns a virtual KISS TNC.
func OpenTransport(logger *log.Logger, peerPath string) (*Transport, error) {
	if peerPath != "" {
		f, err := os.OpenFile(peerPath, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("demo: opening pty peer %q: %w", peerPath, err)
		}
		return &Transport{Radio: radio.NewPTYRadio(f), files: []*os.File{f}}, nil
	}

	master, slave, err := radio.PTYLoopback()
	if err != nil {
		return nil, fmt.Errorf("demo: opening pty pair: %w", err)
	}
	logger.Info("pty pair opened, connect a peer with --pty-peer", "slave", slave.Name())
	return &Transport{Radio: radio.NewPTYRadio(master), files: []*os.File{master, slave}}, nil
}
