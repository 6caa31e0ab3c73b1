// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command wavedaq-shell is an interactive console for ad hoc
// felib.Device commands, for board bring-up outside a full run. It
// never imports runctl: the run pipeline and this console are
// independent ways of talking to a board.
package main // import "github.com/go-lpc/wavedaq/cmd/wavedaq-shell"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/peterh/liner"

	"github.com/go-lpc/wavedaq/felib"
)

func main() {
	log.SetPrefix("wavedaq-shell: ")
	log.SetFlags(0)

	url := flag.String("url", "", "device URL to open (e.g. dig2://caendgtz-usb-25380)")
	flag.Parse()

	if err := run(*url); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(url string) error {
	var dev *felib.Device
	if url != "" {
		d, err := felib.Open(url)
		if err != nil {
			return fmt.Errorf("could not open %q: %w", url, err)
		}
		dev = d
		defer dev.Close()
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		cmd, err := line.Prompt("wavedaq> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read command: %w", err)
		}
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		line.AppendHistory(cmd)

		var quit bool
		dev, quit = dispatch(dev, cmd)
		if quit {
			return nil
		}
	}
}

// dispatch executes one shell command against dev, returning the
// (possibly newly opened) device and whether the shell should exit.
func dispatch(dev *felib.Device, cmd string) (*felib.Device, bool) {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case "quit", "exit":
		return dev, true

	case "open":
		if len(fields) != 2 {
			fmt.Println("usage: open <url>")
			return dev, false
		}
		if dev != nil {
			dev.Close()
		}
		d, err := felib.Open(fields[1])
		if err != nil {
			fmt.Printf("could not open %q: %+v\n", fields[1], err)
			return dev, false
		}
		fmt.Printf("opened %q (handle=%d)\n", fields[1], d.Handle())
		return d, false

	case "close":
		if dev == nil {
			fmt.Println("no device open")
			return dev, false
		}
		if err := dev.Close(); err != nil {
			fmt.Printf("could not close device: %+v\n", err)
		}
		return nil, false

	case "get":
		if dev == nil || len(fields) != 2 {
			fmt.Println("usage: get <path> (requires an open device)")
			return dev, false
		}
		v, err := dev.GetValue(fields[1])
		if err != nil {
			fmt.Printf("could not get %q: %+v\n", fields[1], err)
			return dev, false
		}
		fmt.Println(v)
		return dev, false

	case "set":
		if dev == nil || len(fields) != 3 {
			fmt.Println("usage: set <path> <value> (requires an open device)")
			return dev, false
		}
		if err := dev.SetValue(fields[1], fields[2]); err != nil {
			fmt.Printf("could not set %q: %+v\n", fields[1], err)
		}
		return dev, false

	case "send":
		if dev == nil || len(fields) != 2 {
			fmt.Println("usage: send <path> (requires an open device)")
			return dev, false
		}
		if err := dev.SendCommand(fields[1]); err != nil {
			fmt.Printf("could not send %q: %+v\n", fields[1], err)
		}
		return dev, false

	default:
		fmt.Printf("unknown command %q (open|close|get|set|send|quit)\n", fields[0])
		return dev, false
	}
}
