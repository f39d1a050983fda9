package batch

import (
	"fmt"

	"gfx.cafe/gfx/imgconv/lib/convert"
)

type Status int

const (
	StatusPending Status = iota
	StatusConverting
	StatusSuccess
	StatusError
	StatusCount
)

var statusString = [StatusCount]string{
	StatusPending:    "pending",
	StatusConverting: "converting",
	StatusSuccess:    "success",
	StatusError:      "error",
}

func (T Status) String() string {
	if T < 0 || T >= StatusCount {
		return "unknown"
	}
	return statusString[T]
}

// Item is the per-file state of a batch.
type Item struct {
	// Source is the name the file was submitted under and FileName the name
	// of the converted output.
	Source   string
	FileName string
	Progress float64
	Status   Status
	Result   *convert.Result
	Err      error
}

type Summary struct {
	Counts [StatusCount]int
	Bytes  int
}

func Summarize(items []Item) Summary {
	var s Summary
	for _, item := range items {
		if item.Status >= 0 && item.Status < StatusCount {
			s.Counts[item.Status]++
		}
		if item.Result != nil {
			s.Bytes += len(item.Result.Data)
		}
	}
	return s
}

func (T Summary) Total() int {
	var total int
	for _, count := range T.Counts {
		total += count
	}
	return total
}

func (T Summary) String() string {
	return fmt.Sprintf(
		"%d converted, %d failed, %d unfinished, %d bytes",
		T.Counts[StatusSuccess],
		T.Counts[StatusError],
		T.Counts[StatusPending]+T.Counts[StatusConverting],
		T.Bytes,
	)
}
