package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/target/codegen-api/internal/data"
	"github.com/target/codegen-api/internal/domain/model"
)

type eventsOptions struct {
	Channel string
	Count   int
	JSON    bool
}

func runEvents(cmdCtx *commandContext, args []string) error {
	opts, err := parseEventsFlags(args, cmdCtx.Config.Events.Channel)
	if err != nil {
		return err
	}

	client, err := maybeConnectRedis(cmdCtx.Ctx, cmdCtx.Logger, &cmdCtx.Config.Redis)
	if err != nil {
		if errors.Is(err, errRedisNotConfigured) {
			return errors.New("events requires REDIS_URI (or sentinel/cluster settings)")
		}
		return err
	}
	defer closeRedis(client, cmdCtx.Logger)

	bus := data.NewRedisEventBus(client, opts.Channel, cmdCtx.Logger)
	if err := writef(os.Stderr, "Listening on %q (Ctrl-C to stop)\n", bus.Channel()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmdCtx.Ctx)
	defer cancel()

	printer := &eventPrinter{out: cmdCtx.Out, json: opts.JSON, limit: opts.Count, stop: cancel}
	if err := bus.Subscribe(ctx, printer.print); err != nil {
		return fmt.Errorf("subscribe %s: %w", opts.Channel, err)
	}
	return printer.err
}

// eventPrinter renders events as they arrive and cancels the subscription once limit is reached.
type eventPrinter struct {
	out   io.Writer
	json  bool
	limit int
	stop  context.CancelFunc

	seen int
	err  error
}

func (p *eventPrinter) print(evt model.CodeGeneratedEvent) {
	if p.err != nil {
		return
	}
	if p.json {
		p.err = printJSON(p.out, evt)
	} else {
		p.err = writeln(p.out, formatEvent(evt))
	}

	p.seen++
	if p.err != nil || (p.limit > 0 && p.seen >= p.limit) {
		p.stop()
	}
}

func formatEvent(evt model.CodeGeneratedEvent) string {
	status := "ok"
	if !evt.Success {
		status = "failed"
	}
	line := fmt.Sprintf("%s  %-6s  %-8s  %6dms  %s  %q",
		evt.Timestamp.UTC().Format(time.RFC3339),
		status,
		evt.Target,
		evt.GenerationTimeMs,
		evt.ID,
		truncatePrompt(evt.Prompt, 60),
	)
	if evt.Error != "" {
		line += "  error=" + evt.Error
	}
	return line
}

func truncatePrompt(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func parseEventsFlags(args []string, defaultChannel string) (eventsOptions, error) {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts eventsOptions
	fs.StringVar(&opts.Channel, "channel", defaultChannel, "Pub/sub channel to subscribe to")
	fs.IntVar(&opts.Count, "count", 0, "Exit after this many events (0 = run until interrupted)")
	fs.BoolVar(&opts.JSON, "json", false, "Print each event as JSON")

	if err := fs.Parse(args); err != nil {
		return eventsOptions{}, err
	}

	opts.Channel = strings.TrimSpace(opts.Channel)
	if opts.Channel == "" {
		return eventsOptions{}, errors.New("--channel must not be empty")
	}
	if opts.Count < 0 {
		return eventsOptions{}, errors.New("--count must not be negative")
	}
	return opts, nil
}
