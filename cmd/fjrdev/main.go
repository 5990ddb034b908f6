// Command fjrdev loads one byte-queue device into an in-memory registrar and
// drives it from stdin, one command per line:
//
//	open | close | write <text> | read [n] | readall | stat
//
// The device is unloaded on EOF.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/i5heu/GoByteQueue/pkg/config"
	"github.com/i5heu/GoByteQueue/pkg/device"
	"github.com/i5heu/GoByteQueue/pkg/logger"
	"github.com/i5heu/GoByteQueue/pkg/registrar"
)

func main() {
	configPath := flag.String("config", "", "Optional TOML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	table := registrar.NewTable(log)
	dev, err := device.Load(cfg, table, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading device:", err)
		os.Exit(1)
	}

	runErr := run(os.Stdin, os.Stdout, table, dev)
	if err := dev.Unload(); err != nil {
		fmt.Fprintln(os.Stderr, "Error unloading device:", err)
		os.Exit(1)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "Error:", runErr)
		os.Exit(1)
	}
}

// run dispatches each command through the registrar, the way a host would
// route a call on the device node to the registered callbacks.
func run(in io.Reader, out io.Writer, table *registrar.Table, dev *device.Device) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		cmd, arg, _ := strings.Cut(line, " ")
		if cmd == "" {
			continue
		}

		ops, ok := table.Lookup(dev.Major())
		if !ok {
			return errors.Errorf("major %d not registered", dev.Major())
		}

		switch cmd {
		case "open":
			if err := ops.OnOpen(); err != nil {
				return err
			}
		case "close":
			if err := ops.OnClose(); err != nil {
				return err
			}
		case "write":
			n, err := ops.OnWrite([]byte(arg))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %d of %d bytes\n", n, len(arg))
		case "read":
			size := 1024
			if arg != "" {
				v, err := strconv.Atoi(arg)
				if err != nil || v < 0 {
					fmt.Fprintf(out, "bad length %q\n", arg)
					continue
				}
				size = v
			}
			// No read can return more than the queue holds.
			if uint64(size) > dev.Capacity() {
				size = int(dev.Capacity())
			}
			buf := make([]byte, size)
			n, err := ops.OnRead(buf)
			if err != nil {
				fmt.Fprintln(out, "read failed:", err)
				continue
			}
			fmt.Fprintf(out, "read %d bytes: %q\n", n, buf[:n])
		case "readall":
			data, err := dev.Endpoint().ReadAll()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "read %d bytes: %q\n", len(data), data)
		case "stat":
			ep := dev.Endpoint()
			fmt.Fprintf(out, "%s major=%d mode=%s\n", dev.Name(), dev.Major(), ep.Mode())
		default:
			fmt.Fprintf(out, "unknown command %q\n", cmd)
		}
	}
	return errors.Wrap(scanner.Err(), "read commands")
}
