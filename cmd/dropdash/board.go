package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/nerrad567/dropdash/internal/board"
	"github.com/nerrad567/dropdash/internal/infrastructure/config"
	"github.com/nerrad567/dropdash/internal/rpc"
)

// BoardCmd loads a board definition and prints its geometry.
type BoardCmd struct {
	File string `arg:"" optional:"" help:"Board definition file; the configured device is asked when omitted"`
}

// Run implements the board command.
func (c *BoardCmd) Run(g *Globals) error {
	var b *board.Board
	if c.File != "" {
		loaded, err := board.LoadFile(c.File)
		if err != nil {
			return err
		}
		b = loaded
	} else {
		cfg, err := config.Load(g.Config)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		client := rpc.NewClient(rpcURL(cfg.Device), &http.Client{
			Timeout: time.Duration(cfg.Device.RPCTimeout) * time.Second,
		})
		ctx, cancel := context.WithTimeout(g.Context, boardFetchTimeout)
		defer cancel()
		b, err = board.Load(ctx, cfg.Board.File, client)
		if err != nil {
			return err
		}
	}
	return printBoard(g.Stdout, b)
}

// printBoard writes a summary line, the extent and one row per pin.
func printBoard(w io.Writer, b *board.Board) error {
	l := b.Layout
	ext, err := l.Extent()
	if err != nil {
		return fmt.Errorf("computing extent: %w", err)
	}

	fmt.Fprintf(w, "electrodes: %d\n", l.ElectrodeCount())
	fmt.Fprintf(w, "grids: %d\n", l.Grids())
	fmt.Fprintf(w, "extent: x=[%g, %g] y=[%g, %g]\n", ext.MinX, ext.MaxX, ext.MinY, ext.MaxY)
	if b.Registration != nil {
		fmt.Fprintf(w, "registration: %v\n", *b.Registration)
	}
	if b.Reference != nil {
		fmt.Fprintf(w, "reference: %d fiducials, %d control points\n",
			len(b.Reference.Fiducials), len(b.Reference.Electrodes))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PIN\tAREA")
	for _, pin := range l.Pins() {
		fmt.Fprintf(tw, "%d\t%.4g\n", pin, l.PinArea(pin))
	}
	return tw.Flush()
}
