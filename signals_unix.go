//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"golang.org/x/sys/unix"
)

func (ed *Editor) handleSignals() {
	signal.Notify(ed.sigch, unix.SIGINT, unix.SIGHUP, unix.SIGQUIT)
	for sig := range ed.sigch {
		switch sig {
		case unix.SIGINT:
			ed.ws.Interrupt()
			fmt.Fprintf(ed.stdout, "\n%s\n", ErrDefault)
		case unix.SIGHUP:
			ed.hup.Store(true)
			ed.ws.Interrupt()
		case unix.SIGQUIT:
			// ignore
		}
	}
}

// hangup saves a modified buffer to ed.hup in the working directory,
// or in the home directory when that fails. The remembered file is
// left alone.
func (ed *Editor) hangup() {
	b := ed.ws.Current()
	if !b.Dirty() {
		return
	}
	blob := ed.blob(1, b.LineCount())
	err := os.WriteFile(DefaultHangupFile, blob, 0o600)
	if err == nil {
		return
	}
	if home, herr := os.UserHomeDir(); herr == nil {
		err = os.WriteFile(filepath.Join(home, DefaultHangupFile), blob, 0o600)
	}
	if err != nil {
		log.Printf("hangup: %v", err)
	}
}
