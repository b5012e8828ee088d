package report

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress wraps a terminal progress bar over the total chunk count, kept
// separate from Report itself so a dry run or a quiet/non-interactive
// caller can skip it by never constructing one.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress builds a progress bar over total units of work, writing to
// w (os.Stderr in the CLI, io.Discard in tests).
func NewProgress(total int, w io.Writer) *Progress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("fetching"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)
	return &Progress{bar: bar}
}

// Add advances the bar by n, ignoring the write error the underlying bar
// can return on a closed writer.
func (p *Progress) Add(n int) {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Add(n)
}

// Finish completes the bar, leaving it at 100%.
func (p *Progress) Finish() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
