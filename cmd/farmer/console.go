package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bft-labs/farmer/pkg/farmer"
)

// errQuit ends the console loop.
var errQuit = errors.New("quit")

const consoleHelp = `commands:
  start                    connect and load your farm
  donate <address> [name]  create a farm donating to a charity
  save                     save the farm
  upgrade                  level the farm up
  trial                    continue with a local trial farm
  network                  retry after switching wallet network
  status                   print the current state
  quit                     stop and exit`

// console translates typed commands into farmer intents.
type console struct {
	f   *farmer.Farmer
	out io.Writer
}

// handle runs one command line. It returns errQuit for quit.
func (c *console) handle(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "start", "get_started":
		return c.f.GetStarted()
	case "donate":
		if len(args) == 0 {
			return fmt.Errorf("usage: donate <address> [name]")
		}
		return c.f.Donate(farmer.Charity{Address: args[0], Name: strings.Join(args[1:], " ")})
	case "save":
		return c.f.Save()
	case "upgrade":
		return c.f.Upgrade()
	case "trial":
		return c.f.Trial()
	case "network", "network_changed":
		return c.f.NetworkChanged()
	case "status":
		c.printStatus()
		return nil
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (c *console) printStatus() {
	snap := c.f.Snapshot()
	fmt.Fprintf(c.out, "state=%s", snap.State)
	if snap.ErrorCode != farmer.ErrCodeNone {
		fmt.Fprintf(c.out, " error=%s", snap.ErrorCode)
	}
	if farm, ok := c.f.Farm(); ok {
		fmt.Fprintf(c.out, " level=%d trial=%t", farm.Level, farm.Trial)
		if farm.Charity.Address != "" {
			fmt.Fprintf(c.out, " charity=%s", farm.Charity.Address)
		}
	}
	fmt.Fprintln(c.out)
}

// run handles lines until ctx ends, the input closes or quit is typed.
// Closed input counts as quit. Input is read on its own goroutine so a
// blocked read never holds up shutdown.
func (c *console) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			err := c.handle(line)
			if errors.Is(err, errQuit) {
				return errQuit
			}
			if err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
	}
}
