package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wojas/go-healthz"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/prtracker/prdemo/config/logger"
	"github.com/prtracker/prdemo/diag"
	"github.com/prtracker/prdemo/export"
	"github.com/prtracker/prdemo/parser"
	"github.com/prtracker/prdemo/schema"
	"github.com/prtracker/prdemo/state"
	"github.com/prtracker/prdemo/status"
	"github.com/prtracker/prdemo/status/healthtracker"
	"github.com/prtracker/prdemo/utils"
	"github.com/prtracker/prdemo/utils/climit"
)

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Bool("dry-run", false, "Parse, but do not store the exports")
	parseCmd.Flags().IntP("concurrency", "j", 0, "Number of demos to parse in parallel (default: concurrency from the config)")
}

var parseCmd = &cobra.Command{
	Use:   "parse [demo...]",
	Short: "Parse demos from storage and store their events as exports",
	Long: `Parse demos from storage and store their events as exports.

Without arguments, every blob under storage.demo_prefix is parsed, except for
exports.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}
		concurrency, err := cmd.Flags().GetInt("concurrency")
		if err != nil {
			return err
		}
		if concurrency <= 0 {
			concurrency = conf.Concurrency
		}

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		st, err := openStorage(rootCtx)
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			list, err := st.List(rootCtx, conf.Storage.DemoPrefix)
			if err != nil {
				return err
			}
			names = demoNames(list, conf.Storage.ExportPrefix)
		}
		if len(names) == 0 {
			logrus.WithField("prefix", conf.Storage.DemoPrefix).Warn("No demos found")
			return nil
		}

		healthz.AddBuildInfo()
		hostname, _ := os.Hostname()
		if hostname != "" {
			healthz.SetMeta("hostname", hostname)
		}
		healthz.SetMeta("version", version)
		status.SetStorage(st)
		status.StartHTTPServer(conf)

		j := &parseJob{
			st:       st,
			reg:      reg,
			health:   healthtracker.New(conf.Health.ExportStore, "export_store", "store exports"),
			hostname: hostname,
			dryRun:   dryRun,
		}
		cl := climit.New("parse", "demos", concurrency, logrus.StandardLogger())
		var failed atomic.Int32

		eg, ctx := errgroup.WithContext(rootCtx)
		for _, name := range names {
			eg.Go(func() error {
				token, err := cl.AcquireContext(ctx)
				if err != nil {
					return err
				}
				defer token.Release()

				if err := j.run(ctx, name); err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					logger.ForDemo(logrus.StandardLogger(), export.DemoName(name)).
						WithError(err).Error("Parse failed")
					failed.Inc()
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		if n := failed.Load(); n > 0 {
			return fmt.Errorf("%d of %d demos failed", n, len(names))
		}
		logrus.WithField("demos", len(names)).Info("All demos parsed")
		return nil
	},
}

// demoNames returns the names of the blobs that are not exports
func demoNames(list simpleblob.BlobList, exportPrefix string) []string {
	demos := lo.Filter(list, func(b simpleblob.Blob, _ int) bool {
		if exportPrefix != "" && strings.HasPrefix(b.Name, exportPrefix) {
			return false
		}
		return !strings.HasSuffix(b.Name, "."+export.Extension)
	})
	return lo.Map(demos, func(b simpleblob.Blob, _ int) string {
		return b.Name
	})
}

// parseJob parses a single demo from storage and stores its export
type parseJob struct {
	st       simpleblob.Interface
	reg      *schema.Registry
	health   *healthtracker.HealthTracker
	hostname string
	dryRun   bool
}

func (j *parseJob) run(ctx context.Context, name string) error {
	demo := export.DemoName(name)
	l := logger.ForDemo(logrus.StandardLogger(), demo)

	data, err := j.st.Load(ctx, name)
	if err != nil {
		return errors.Wrap(err, "load demo")
	}

	p := parser.New(parser.Options{
		Registry: j.reg,
		Sink:     diag.NewLogger(l),
		Logger:   l,
		Blocking: true,
		Progress: func(done bool, h state.History) {
			status.PublishProgress(status.Progress{
				Demo:   demo,
				Worlds: h.Len(),
				Groups: 1,
				Final:  done,
			})
		},
	})
	res, err := p.Parse(ctx, data)
	if err != nil {
		return err
	}

	now := time.Now()
	meta := export.Meta{
		DemoName:      demo,
		SchemaVersion: uint32(j.reg.Version()),
		TimestampNano: uint64(now.UnixNano()),
		Frames:        uint64(res.Frames),
		Truncated:     res.Truncated,
		Tool:          "prdemo " + version,
		Hostname:      j.hostname,
	}
	out, stats, err := export.DumpData(export.New(meta, res.Events))
	if err != nil {
		return errors.Wrap(err, "dump export")
	}
	exportName := conf.Storage.ExportPrefix + export.Name(demo, now)
	l = l.WithFields(logrus.Fields{
		"export":     exportName,
		"events":     len(res.Events),
		"ticks":      res.Ticks,
		"size":       stats.CompressedSize,
		"size_pb":    stats.ProtobufSize,
		"time_parse": res.Duration,
		"time_dump":  stats.TCompressed,
	})
	if j.dryRun {
		l.Info("Parsed demo (dry run)")
		return nil
	}

	if err := j.st.Store(ctx, exportName, out); err != nil {
		j.health.AddFailure()
		return errors.Wrap(err, "store export")
	}
	j.health.AddSuccess()
	l.Info("Stored export")

	// Events of large demos take a lot of memory, release them before the
	// next demo gets the token.
	res, out = nil, nil
	utils.GC()
	return nil
}
