package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/prtracker/prdemo/config/logger"
	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/export"
	"github.com/prtracker/prdemo/parser"
	"github.com/prtracker/prdemo/state"
	"github.com/prtracker/prdemo/status"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolP("storage", "s", false, "Load the demo from the configured storage instead of a local file")
	historyCmd.Flags().IntP("tick", "t", -1, "Show the world after this tick (default: the last one)")
	historyCmd.Flags().Bool("blocking", false, "Fold all ticks at once instead of in groups")
	historyCmd.Flags().Int("groups", 0, "Number of groups to fold the ticks in (default: history.groups from the config)")
	historyCmd.Flags().Bool("yaml", false, "Dump the full world as YAML")
}

var historyCmd = &cobra.Command{
	Use:          "history <demo>",
	Short:        "Build the tick by tick history of a demo and show one world",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStorage, err := cmd.Flags().GetBool("storage")
		if err != nil {
			return err
		}
		tick, err := cmd.Flags().GetInt("tick")
		if err != nil {
			return err
		}
		blocking, err := cmd.Flags().GetBool("blocking")
		if err != nil {
			return err
		}
		groups, err := cmd.Flags().GetInt("groups")
		if err != nil {
			return err
		}
		if groups <= 0 {
			groups = conf.History.Groups
		}
		dumpYAML, err := cmd.Flags().GetBool("yaml")
		if err != nil {
			return err
		}

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		data, err := readDemo(rootCtx, args[0], fromStorage)
		if err != nil {
			return err
		}

		status.StartHTTPServer(conf)

		demo := export.DemoName(args[0])
		l := logger.ForDemo(logrus.StandardLogger(), demo)
		p := parser.New(parser.Options{
			Registry: reg,
			Sink:     diag.NewLogger(l),
			Logger:   l,
			Blocking: blocking,
			Groups:   groups,
			Yield:    runtime.Gosched,
			Progress: progressPublisher(demo, l),
		})
		res, err := p.Parse(rootCtx, data)
		if err != nil {
			if res != nil && errors.Is(err, context.Canceled) {
				l.WithField("worlds", res.History.Len()).Warn("Canceled while building history")
			}
			return err
		}

		w, err := selectWorld(res.History, tick)
		if err != nil {
			return err
		}
		if dumpYAML {
			out, err := yaml.Marshal(w.ToMap())
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		}
		printWorld(os.Stdout, w)
		return nil
	},
}

// progressPublisher returns a progress callback that publishes to the status
// page.
func progressPublisher(demo string, l logrus.FieldLogger) func(bool, state.History) {
	groups := 0
	return func(done bool, h state.History) {
		groups++
		status.PublishProgress(status.Progress{
			Demo:   demo,
			Worlds: h.Len(),
			Groups: groups,
			Final:  done,
		})
		l.WithField("worlds", h.Len()).WithField("groups", groups).Debug("Progress")
	}
}

// selectWorld returns the world after a tick, with -1 meaning the last one.
// Tick 0 is the world before the first tick.
func selectWorld(h state.History, tick int) (state.World, error) {
	if tick < 0 {
		return h.Last(), nil
	}
	if tick >= h.Len() {
		return state.World{}, fmt.Errorf("tick %d out of range, history has %d worlds", tick, h.Len())
	}
	return h.At(tick), nil
}

func printWorld(w io.Writer, world state.World) {
	_, _ = fmt.Fprintf(w, "ticks:   %d\n", world.Ticks())
	_, _ = fmt.Fprintf(w, "intel:   %d\n", world.Intel())
	_, _ = fmt.Fprintf(w, "tickets: %v\n", world.Tickets().ToMap())
	for _, c := range state.Categories() {
		_, _ = fmt.Fprintf(w, "%-10s%d\n", c.String()+":", world.Count(c))
	}
	for _, lg := range state.Logs() {
		_, _ = fmt.Fprintf(w, "%-10s%d\n", lg.String()+":", world.LogLen(lg))
	}
}
