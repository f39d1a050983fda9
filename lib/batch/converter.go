// Package batch converts a set of files through a conversion pool and keeps
// per-file progress.
package batch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"gfx.cafe/gfx/imgconv/lib/convert"
	"gfx.cafe/gfx/imgconv/lib/taskpool"
)

type Converter struct {
	Pool   *convert.Pool
	Logger *zap.Logger
}

// Convert submits every file and waits for all of them. Items are returned in
// submission order. A failed file never stops the rest of the batch. onUpdate
// may be nil and is called with a copy of an item whenever it changes.
func (T *Converter) Convert(ctx context.Context, files []File, format convert.Format, quality int, onUpdate func(index int, item Item)) []Item {
	logger := T.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	items := make([]Item, len(files))
	var mu sync.Mutex

	update := func(i int, fn func(item *Item)) {
		mu.Lock()
		defer mu.Unlock()

		fn(&items[i])
		if onUpdate != nil {
			onUpdate(i, items[i])
		}
	}

	for i, file := range files {
		items[i] = Item{
			Source:   file.Name,
			FileName: file.Name,
			Status:   StatusPending,
		}
		if onUpdate != nil {
			onUpdate(i, items[i])
		}
	}

	jobs := make([]*taskpool.Job[convert.Payload, convert.Result], len(files))
	for i, file := range files {
		jobs[i] = T.Pool.Submit(ctx, convert.Payload{
			Data:    file.Data,
			Format:  format,
			Quality: quality,
		}, func(progress float64) {
			update(i, func(item *Item) {
				if item.Status.terminal() {
					return
				}
				item.Progress = progress
				item.Status = StatusConverting
			})
		})
	}

	for i, job := range jobs {
		result, err := job.Wait(ctx)
		update(i, func(item *Item) {
			if err != nil {
				item.Status = StatusError
				item.Err = err
				logger.Debug(
					"file failed",
					zap.String("file", item.Source),
					zap.Error(err),
				)
				return
			}
			item.Status = StatusSuccess
			item.Progress = convert.ProgressDone
			item.FileName = result.Format.Rename(item.Source)
			item.Result = &result
		})
	}

	mu.Lock()
	defer mu.Unlock()

	return append([]Item(nil), items...)
}

func (T Status) terminal() bool {
	return T == StatusSuccess || T == StatusError
}
