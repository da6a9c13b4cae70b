package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/daytrack/internal/eventstore"
	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
)

// ShowCmd implements the 'show' command.
type ShowCmd struct {
	User   string `arg:"" help:"User id"`
	Metric string `arg:"" optional:"" help:"Only show this metric"`
	JSON   bool   `name:"json" help:"Print the raw state as JSON"`
}

func (s *ShowCmd) Run(g *Global, root *CLI) error {
	rt, _, err := root.openRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	st, err := rt.Tracker.Snapshot(context.Background(), s.User)
	if err != nil {
		return err
	}
	out := g.out()
	if s.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	metrics := st.Metrics()
	if s.Metric != "" {
		metrics = []string{s.Metric}
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, m := range metrics {
		if d, ok := st.ActiveDefault(m); ok {
			_, _ = fmt.Fprintf(tw, "%s\tdefault %d\tfrom %s (%s)\n", m, d.Level, d.StartDate, d.Timezone)
		} else {
			_, _ = fmt.Fprintf(tw, "%s\tno default\t\n", m)
		}
		for _, e := range st.Series(m) {
			skipped := ""
			if st.IsSkipped(m, e.Day) {
				skipped = "reset"
			}
			_, _ = fmt.Fprintf(tw, "\t%s\t%d\t%s\n", e.Day, e.Level, skipped)
		}
	}
	return tw.Flush()
}

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	User string `arg:"" help:"User id"`
	JSON bool   `name:"json" help:"Print events as JSON lines"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	rt, _, err := root.openRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx := context.Background()
	events, err := rt.Tracker.History(ctx, h.User)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return errors.NotFoundError("no journaled events").ForUser(h.User).Build()
	}

	out := g.out()
	if h.JSON {
		enc := json.NewEncoder(out)
		for _, e := range events {
			if err := enc.Encode(map[string]any{
				"id": e.EventID(), "type": e.Type(), "timestamp": e.Timestamp(),
				"payload": json.RawMessage(e.Payload()), "metadata": e.Metadata(),
			}); err != nil {
				return err
			}
		}
		return nil
	}

	projection := eventstore.NewActivityProjection(rt.Journal)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range events {
		projection.Apply(e)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp().Local().Format("2006-01-02 15:04:05"), e.Type(), e.Payload())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	a, _ := projection.Get(h.User)
	_, _ = fmt.Fprintf(out, "%d materialized, %d manual, %d resets, %d default changes\n",
		a.Materializations, a.ManualEntries, a.Resets, a.DefaultChanges)
	return nil
}
