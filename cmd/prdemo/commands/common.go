package commands

import (
	"context"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"

	"github.com/prtracker/prdemo/decode"
	"github.com/prtracker/prdemo/events"
	"github.com/prtracker/prdemo/export"
	"github.com/prtracker/prdemo/schema"
	"github.com/prtracker/prdemo/utils"
)

// openStorage opens the configured simpleblob backend
func openStorage(ctx context.Context) (simpleblob.Interface, error) {
	st, err := simpleblob.GetBackend(ctx, conf.Storage.Type, conf.Storage.Options)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s storage", conf.Storage.Type)
	}
	return st, nil
}

// readDemo reads a demo from a local file, or from the configured storage
func readDemo(ctx context.Context, name string, fromStorage bool) ([]byte, error) {
	if !fromStorage {
		return os.ReadFile(name)
	}
	st, err := openStorage(ctx)
	if err != nil {
		return nil, err
	}
	data, err := st.Load(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	return data, nil
}

// loadRegistry returns the message table from the config, or the built-in one
func loadRegistry() (*schema.Registry, error) {
	if conf.SchemaFile == "" {
		return schema.Default(), nil
	}
	r, err := schema.LoadYAMLFile(conf.SchemaFile)
	if err != nil {
		return nil, errors.Wrapf(err, "schema_file %s", conf.SchemaFile)
	}
	return r, nil
}

// formatEvent formats an event as a single line. Opaque payloads longer than
// maxBytes are cut.
func formatEvent(e events.Event, maxBytes int) string {
	var data string
	if b, ok := e.Data.([]byte); ok {
		data = utils.DisplayASCII(b, maxBytes)
	} else {
		data = decode.Format(e.Data)
	}
	return fmt.Sprintf("%8d  0x%02x %-20s %s", e.Offset, e.Tag, e.Type, data)
}

// sortByTime sorts exports by the time in their name. Names that do not parse
// come first, sorted by name.
func sortByTime(list simpleblob.BlobList) {
	slices.SortStableFunc(list, func(a, b simpleblob.Blob) int {
		na, errA := export.ParseName(path.Base(a.Name))
		nb, errB := export.ParseName(path.Base(b.Name))
		switch {
		case errA != nil && errB != nil:
			return strings.Compare(a.Name, b.Name)
		case errA != nil:
			return -1
		case errB != nil:
			return 1
		}
		return na.Timestamp.Compare(nb.Timestamp)
	})
}
