package commands

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/prtracker/prdemo/config/logger"
	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/events"
	"github.com/prtracker/prdemo/export"
	"github.com/prtracker/prdemo/parser"
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().BoolP("storage", "s", false, "Load the demo from the configured storage instead of a local file")
	eventsCmd.Flags().StringSliceP("type", "t", nil, "Only print events of these types")
	eventsCmd.Flags().Int("max-bytes", 64, "Cut opaque payloads after this many bytes (0 for no limit)")
	eventsCmd.Flags().Bool("no-overrides", false, "Decode every message from the schema table only")
}

var eventsCmd = &cobra.Command{
	Use:          "events <demo>",
	Short:        "Decode a demo and print its events",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStorage, err := cmd.Flags().GetBool("storage")
		if err != nil {
			return err
		}
		types, err := cmd.Flags().GetStringSlice("type")
		if err != nil {
			return err
		}
		maxBytes, err := cmd.Flags().GetInt("max-bytes")
		if err != nil {
			return err
		}
		noOverrides, err := cmd.Flags().GetBool("no-overrides")
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

		l := logger.ForDemo(logrus.StandardLogger(), export.DemoName(args[0]))
		sink := diag.NewLogger(l)
		opt := parser.Options{
			Registry: reg,
			Sink:     sink,
			Logger:   l,
		}
		if noOverrides {
			opt.Overrides = map[string]events.Override{}
		}
		res, err := parser.New(opt).Events(data)
		if err != nil {
			return err
		}

		for _, e := range res.Events {
			if len(types) > 0 && !lo.Contains(types, e.Type) {
				continue
			}
			fmt.Println(formatEvent(e, maxBytes))
		}

		fields := logrus.Fields{
			"frames":     res.Frames,
			"events":     len(res.Events),
			"compressed": res.CompressedSize,
			"size":       res.DecompressedSize,
			"truncated":  res.Truncated,
			"time":       res.Duration,
		}
		for kind, n := range sink.Counts() {
			fields[string(kind)] = n
		}
		l.WithFields(fields).Info("Decoded demo")
		return nil
	},
}
