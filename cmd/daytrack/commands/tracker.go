package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"git.home.luguber.info/inful/daytrack/internal/dayid"
)

// DefaultCmd implements the 'default' command.
type DefaultCmd struct {
	User   string `arg:"" help:"User id"`
	Metric string `arg:"" help:"Metric name, e.g. pain"`
	Value  int    `arg:"" help:"Default level; 0 deactivates the default"`
	TZ     string `name:"tz" help:"Timezone that defines 'today' (defaults to the user's timezone)"`
}

func (d *DefaultCmd) Run(g *Global, root *CLI) error {
	rt, _, err := root.openRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx := context.Background()
	if err := rt.Tracker.SaveDefault(ctx, d.User, d.Metric, d.Value, d.TZ); err != nil {
		return err
	}
	s, err := rt.Tracker.Snapshot(ctx, d.User)
	if err != nil {
		return err
	}
	if def, ok := s.ActiveDefault(d.Metric); ok {
		_, _ = fmt.Fprintf(g.out(), "%s %s: default %d from %s (%s)\n", d.User, d.Metric, def.Level, def.StartDate, def.Timezone)
	} else {
		_, _ = fmt.Fprintf(g.out(), "%s %s: default cleared\n", d.User, d.Metric)
	}
	return nil
}

// ManualCmd implements the 'manual' command.
type ManualCmd struct {
	User   string `arg:"" help:"User id"`
	Day    string `arg:"" help:"Day as YYYY-M-D (zero padding accepted)"`
	Metric string `arg:"" help:"Metric name"`
	Value  int    `arg:"" help:"Level; 0 removes the day's value"`
}

func (m *ManualCmd) Run(g *Global, root *CLI) error {
	rt, _, err := root.openRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if err := rt.Tracker.SaveManual(context.Background(), m.User, m.Day, m.Metric, m.Value); err != nil {
		return err
	}
	day, _ := dayid.Normalize(m.Day)
	if m.Value > 0 {
		_, _ = fmt.Fprintf(g.out(), "%s %s %s = %d\n", m.User, m.Metric, day, m.Value)
	} else {
		_, _ = fmt.Fprintf(g.out(), "%s %s %s removed\n", m.User, m.Metric, day)
	}
	return nil
}

// ResetCmd implements the 'reset' command.
type ResetCmd struct {
	User    string   `arg:"" help:"User id"`
	Day     string   `arg:"" help:"Day as YYYY-M-D"`
	Metrics []string `arg:"" optional:"" help:"Metrics to reset (defaults to the tracked set)"`
}

func (r *ResetCmd) Run(g *Global, root *CLI) error {
	rt, cfg, err := root.openRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if err := rt.Tracker.ResetDay(context.Background(), r.User, r.Day, r.Metrics...); err != nil {
		return err
	}
	metrics := r.Metrics
	if len(metrics) == 0 {
		metrics = cfg.Tracker.Metrics
	}
	day, _ := dayid.Normalize(r.Day)
	_, _ = fmt.Fprintf(g.out(), "%s %s reset: %v\n", r.User, day, metrics)
	return nil
}

// MaterializeCmd implements the 'materialize' command.
type MaterializeCmd struct {
	User string `arg:"" optional:"" help:"User id (all users when omitted)"`
	TZ   string `name:"tz" help:"Timezone override for a single user"`
}

func (m *MaterializeCmd) Run(g *Global, root *CLI) error {
	rt, _, err := root.openRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx := context.Background()
	out := g.out()
	if m.User == "" {
		sum, err := rt.Tracker.MaterializeAll(ctx)
		for _, user := range slices.Sorted(maps.Keys(sum.Writes)) {
			for _, w := range sum.Writes[user] {
				_, _ = fmt.Fprintf(out, "%s %s %s = %d\n", user, w.Metric, w.Day, w.Level)
			}
		}
		_, _ = fmt.Fprintf(out, "%d user(s), %d value(s) written, %d failed\n", sum.Users, sum.Materialized, sum.Failed)
		return err
	}

	written, err := rt.Tracker.Materialize(ctx, m.User, m.TZ)
	for _, w := range written {
		_, _ = fmt.Fprintf(out, "%s %s %s = %d\n", m.User, w.Metric, w.Day, w.Level)
	}
	if err == nil && len(written) == 0 {
		_, _ = fmt.Fprintf(out, "%s: nothing to materialize\n", m.User)
	}
	return err
}
