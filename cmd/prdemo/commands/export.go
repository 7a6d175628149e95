package commands

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/prtracker/prdemo/config/logger"
	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/export"
	"github.com/prtracker/prdemo/parser"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "Output filename (default: generated export name)")
}

var exportCmd = &cobra.Command{
	Use:          "export <demo>",
	Short:        "Decode a local demo and write its events to a local export file",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		outName, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		data, err := readDemo(rootCtx, args[0], false)
		if err != nil {
			return err
		}

		demo := export.DemoName(args[0])
		l := logger.ForDemo(logrus.StandardLogger(), demo)
		res, err := parser.New(parser.Options{
			Registry: reg,
			Sink:     diag.NewLogger(l),
			Logger:   l,
		}).Events(data)
		if err != nil {
			return err
		}

		now := time.Now()
		hostname, _ := os.Hostname()
		out, stats, err := export.DumpData(export.New(export.Meta{
			DemoName:      demo,
			SchemaVersion: uint32(reg.Version()),
			TimestampNano: uint64(now.UnixNano()),
			Frames:        uint64(res.Frames),
			Truncated:     res.Truncated,
			Tool:          "prdemo " + version,
			Hostname:      hostname,
		}, res.Events))
		if err != nil {
			return err
		}
		if outName == "" {
			outName = export.Name(demo, now)
		}
		if err := os.WriteFile(outName, out, 0666); err != nil {
			return err
		}
		l.WithFields(logrus.Fields{
			"output": outName,
			"events": len(res.Events),
			"size":   stats.CompressedSize,
		}).Info("Wrote export")
		return nil
	},
}
