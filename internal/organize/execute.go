package organize

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/kalafut/imohash"
	"go.uber.org/zap"

	"mediashift/internal/logging"
	"mediashift/internal/rename"
)

// ExecuteOptions controls plan execution.
type ExecuteOptions struct {
	// Backup takes a `.backup` sibling copy before each move and
	// restores it if the move fails.
	Backup bool
	// DryRun reports what would happen without touching the filesystem.
	DryRun bool
	// Workers bounds the rename worker pool; 0 means one per CPU.
	Workers int
	// Progress, when set, is called after every finished file.
	Progress func(done, total int, path string)
}

// Stats counts the outcome of a batch operation.
type Stats struct {
	Done    int
	Skipped int
}

// Execute applies a rename plan with a bounded worker pool. Files are
// independent: per-file failures are logged and skipped, never fatal to
// the batch. Cancelling the context stops feeding new files; completed
// renames stay in place.
func Execute(ctx context.Context, plan rename.Plan, opts ExecuteOptions) (Stats, error) {
	srcs := make([]string, 0, len(plan))
	for src := range plan {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		jobs  = make(chan string)
		wg    sync.WaitGroup
		mu    sync.Mutex
		stats Stats
		done  int
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				ok := executeOne(src, plan[src], opts)

				mu.Lock()
				if ok {
					stats.Done++
				} else {
					stats.Skipped++
				}
				done++
				if opts.Progress != nil {
					opts.Progress(done, len(srcs), src)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, src := range srcs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- src:
		}
	}
	close(jobs)
	wg.Wait()

	return stats, ctx.Err()
}

func executeOne(src, dest string, opts ExecuteOptions) bool {
	log := logging.Log

	if src == dest {
		return false
	}
	if !pathExists(src) {
		log.Warn("source missing, skipping", zap.String("path", src))
		return false
	}
	if pathExists(dest) {
		if sameContent(src, dest) {
			log.Warn("destination exists with identical content, skipping",
				zap.String("path", src), zap.String("dest", dest))
		} else {
			log.Warn("destination already exists, skipping",
				zap.String("path", src), zap.String("dest", dest))
		}
		return false
	}

	if opts.DryRun {
		log.Info("would rename", zap.String("from", src), zap.String("to", dest))
		return true
	}

	if err := EnsureDir(filepath.Dir(dest)); err != nil {
		log.Warn("cannot create destination directory, skipping",
			zap.String("path", src), zap.Error(err))
		return false
	}
	if err := MoveWithBackup(src, dest, opts.Backup); err != nil {
		log.Warn("rename failed, skipping", zap.String("path", src), zap.Error(err))
		return false
	}

	log.Info("renamed", zap.String("from", src), zap.String("to", dest))
	return true
}

func sameContent(a, b string) bool {
	ha, err := imohash.SumFile(a)
	if err != nil {
		return false
	}
	hb, err := imohash.SumFile(b)
	if err != nil {
		return false
	}
	return ha == hb
}
