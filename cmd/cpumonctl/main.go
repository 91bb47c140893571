package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
)

const usage = `usage: cpumonctl [flags] <command>

commands:
  get                 print the threshold table
  set <id> <value>    set the alert threshold of processor id (0 disables)

flags:
`

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("CPUMON_URL", "http://localhost:3100"), "control plane base URL")
	secret := flag.String("secret", os.Getenv("CPUMON_CONTROL_SECRET"), "shared secret used to sign write tokens")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, newControlClient(*addr, *secret), flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "cpumonctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *controlClient, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "get":
		return c.Thresholds(ctx, os.Stdout)

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("set needs <id> <value>")
		}

		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid id %q", args[1])
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid value %q", args[2])
		}
		if value < 0 || value > 100 {
			return fmt.Errorf("value must be between 0 and 100")
		}

		n, err := c.SetThreshold(ctx, id, value)
		if err != nil {
			return err
		}
		fmt.Printf("sent %d bytes\n", n)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
