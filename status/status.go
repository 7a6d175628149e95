package status

import (
	"context"
	"sync"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"

	"github.com/prtracker/prdemo/utils/topics"
)

// Progress describes how far the history of a demo has been built
type Progress struct {
	Demo   string
	Worlds int  // number of worlds built so far
	Groups int  // number of completed groups
	Final  bool // true once the history is complete
	Time   time.Time
}

type info struct {
	mu       sync.Mutex
	st       simpleblob.Interface
	progress *topics.Topic[Progress]
}

var gi = info{
	progress: topics.New[Progress](),
}

func (i *info) ListBlobs(ctx context.Context, prefix string) (simpleblob.BlobList, error) {
	i.mu.Lock()
	st := i.st
	i.mu.Unlock()
	if st == nil {
		return nil, errors.New("no storage registered with status page")
	}
	return st.List(ctx, prefix)
}

// SetStorage registers the storage that holds the exports with the status page
func SetStorage(st simpleblob.Interface) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.st = st
}

// PublishProgress publishes a progress update. It never blocks.
func PublishProgress(p Progress) {
	if p.Time.IsZero() {
		p.Time = time.Now()
	}
	gi.progress.Publish(p)
}

// LastProgress returns the most recent progress update, if any
func LastProgress() (Progress, bool) {
	return gi.progress.Last()
}

// SubscribeProgress subscribes to progress updates. Slow subscribers only see
// the latest update. The subscription must be closed.
func SubscribeProgress(sendLast bool) *topics.Subscription[Progress] {
	return gi.progress.Subscribe(sendLast)
}
