// Dropdash is the operator dashboard for a digital-microfluidics electrode
// controller.
//
// It keeps a reconnecting telemetry stream open to the device, coalesces
// events into renderer updates, and turns operator clicks and key presses
// into electrode commands over the device's JSON-RPC channel.
//
// For architecture details, see internal/dashboard/doc.go.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the root command line.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (defaults plus environment when empty)" env:"DROPDASH_CONFIG"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run     RunCmd     `cmd:"" default:"1" help:"Start the dashboard core (default)"`
	Board   BoardCmd   `cmd:"" help:"Load a board definition and print its geometry"`
	Migrate MigrateCmd `cmd:"" help:"Apply database migrations"`
}

// Globals is bound into every command's Run method.
type Globals struct {
	Context context.Context
	Config  string
	Stdout  io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("dropdash"),
		kong.Description("Electrode controller dashboard"),
		kong.Vars{"version": fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)},
		kong.Writers(stdout, os.Stderr),
	)
	if err != nil {
		return fmt.Errorf("building command line: %w", err)
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return kctx.Run(&Globals{
		Context: ctx,
		Config:  cli.Config,
		Stdout:  stdout,
	})
}
