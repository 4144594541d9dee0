package sources

import (
	"context"

	"github.com/gaixen/credtech-ingest/app/model"
)

// Source is the capability contract every feed adapter implements.
//
// Start launches the adapter's own fetch loop and returns once launched;
// a disabled adapter returns immediately and successfully, doing no work,
// so the manager treats "disabled" and "started" identically. Stop must
// be safe to call even if Start never ran and must not block past the
// deadline carried by ctx.
type Source interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
	Enabled() bool
}

// JobSink accepts post-processing jobs produced by adapters after a
// successful save. Submission may fail when the queue is full; adapters
// log and drop in that case.
type JobSink interface {
	Submit(job model.ProcessingJob) error
}
