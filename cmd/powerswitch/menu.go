package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

const menuText = `
powerswitch - powermand supervisor
  1) status
  2) start
  3) stop
  4) restart
  5) follow logs
  6) run schedule check
  7) run pause/resume test
  8) exit
choice: `

// menu reads numeric choices from in and dispatches them until the operator
// exits. Action failures are reported and the menu continues.
func (c *command) menu(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, menuText)
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		choice := strings.TrimSpace(scanner.Text())
		if choice == "8" || strings.EqualFold(choice, "q") {
			return nil
		}
		if err := c.dispatchChoice(choice); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

func (c *command) dispatchChoice(choice string) error {
	switch choice {
	case "1":
		return c.Status(context.Background())
	case "2":
		return c.Start(context.Background())
	case "3":
		return c.Stop(context.Background())
	case "4":
		return c.Restart(context.Background())
	case "5":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return c.Logs(ctx)
	case "6":
		return c.Diagnose("once")
	case "7":
		return c.Diagnose("test_pause")
	default:
		fmt.Fprintf(c.out, "unknown choice %q\n", choice)
		return nil
	}
}
