package commands

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/prtracker/prdemo/export"
)

func init() {
	rootCmd.AddCommand(exportsCmd)

	exportsCmd.AddCommand(exportsListCmd)
	exportsListCmd.Flags().StringP("prefix", "p", "", "Prefix filter (default: storage.export_prefix)")
	exportsListCmd.Flags().BoolP("long", "l", false, "Add extra information, like size")
	exportsListCmd.Flags().BoolP("time", "t", false, "Sort by export time")

	exportsCmd.AddCommand(exportsDumpCmd)
	exportsDumpCmd.Flags().BoolP("local", "l", false,
		"Dump a local file instead of a stored export")
	exportsDumpCmd.Flags().Int("max-bytes", 64, "Cut opaque payloads after this many bytes (0 for no limit)")

	exportsCmd.AddCommand(exportsGetCmd)
	exportsGetCmd.Flags().StringP("output", "o", "",
		"Output filename, if not the same as the stored name")

	exportsCmd.AddCommand(exportsRemoveCmd)
}

var exportsCmd = &cobra.Command{
	Use:   "exports",
	Short: "Stored export operations (list, dump, get, remove)",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var exportsListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List exports",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}

		prefix, err := cmd.Flags().GetString("prefix")
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("prefix") {
			prefix = conf.Storage.ExportPrefix
		}
		long, err := cmd.Flags().GetBool("long")
		if err != nil {
			return err
		}
		byTime, err := cmd.Flags().GetBool("time")
		if err != nil {
			return err
		}

		list, err := st.List(ctx, prefix)
		if err != nil {
			return err
		}
		if byTime {
			sortByTime(list)
		}

		for _, blob := range list {
			if long {
				fmt.Printf("%12d\t%s\n", blob.Size, blob.Name)
			} else {
				fmt.Printf("%s\n", blob.Name)
			}
		}
		return nil
	},
}

var exportsDumpCmd = &cobra.Command{
	Use:          "dump <name>",
	Short:        "Dump export contents for debugging",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		local, err := cmd.Flags().GetBool("local")
		if err != nil {
			return err
		}
		maxBytes, err := cmd.Flags().GetInt("max-bytes")
		if err != nil {
			return err
		}

		var data []byte
		if local {
			data, err = os.ReadFile(args[0])
		} else {
			st, err2 := openStorage(ctx)
			if err2 != nil {
				return err2
			}
			data, err = st.Load(ctx, args[0])
		}
		if err != nil {
			return err
		}

		x, err := export.LoadData(data)
		if err != nil {
			return errors.Wrap(err, "load export")
		}

		m := x.Meta
		fmt.Printf("format:    %d (compat %d)\n", x.FormatVersion, x.CompatVersion)
		fmt.Printf("demo:      %s\n", m.DemoName)
		fmt.Printf("schema:    %d\n", m.SchemaVersion)
		fmt.Printf("time:      %s\n", time.Unix(0, int64(m.TimestampNano)).UTC().Format(time.RFC3339Nano))
		fmt.Printf("frames:    %d\n", m.Frames)
		fmt.Printf("truncated: %v\n", m.Truncated)
		fmt.Printf("tool:      %s\n", m.Tool)
		fmt.Printf("hostname:  %s\n", m.Hostname)
		fmt.Printf("events:    %d\n\n", len(x.Events))
		for _, e := range x.Events {
			fmt.Println(formatEvent(e, maxBytes))
		}
		return nil
	},
}

var exportsGetCmd = &cobra.Command{
	Use:          "get <name>",
	Short:        "Download a stored export to a local file",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		outName, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		if outName == "" {
			outName = path.Base(args[0])
		}

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		data, err := st.Load(ctx, args[0])
		if err != nil {
			return err
		}
		return os.WriteFile(outName, data, 0666)
	},
}

var exportsRemoveCmd = &cobra.Command{
	Use:          "remove <name>",
	Short:        "Remove a stored export",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		return st.Delete(ctx, args[0])
	},
}
