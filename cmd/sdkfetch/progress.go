package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

const unsizedReportInterval = 1 << 20

// progressPrinter redraws one status line whenever the whole percentage
// changes, or every mebibyte when the total is unknown.
type progressPrinter struct {
	out      io.Writer
	reported int64
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, reported: -1}
}

func (this *progressPrinter) OnProgress(downloaded, total int64) {
	if total <= 0 {
		if downloaded/unsizedReportInterval == this.reported {
			return
		}
		this.reported = downloaded / unsizedReportInterval
		_, _ = fmt.Fprintf(this.out, "\rDownloading: %s", humanize.IBytes(uint64(downloaded)))
		return
	}

	percent := downloaded * 100 / total
	if percent == this.reported {
		return
	}
	this.reported = percent
	_, _ = fmt.Fprintf(this.out, "\rDownloading: %s / %s (%d%%)",
		humanize.IBytes(uint64(downloaded)), humanize.IBytes(uint64(total)), percent)
	if downloaded >= total {
		_, _ = fmt.Fprintln(this.out)
		this.reported = -1
	}
}
