package output

import (
	"fmt"
	"io"

	"github.com/trxui/trxloader/internal/types"
)

// Progress prints one line per update phase, the terminal counterpart of a
// splash screen status label.
type Progress struct {
	w     io.Writer
	quiet bool
	last  types.Phase
}

// NewProgress creates a progress printer writing to w. A quiet printer only
// reports the coarse phases, not the installer steps.
func NewProgress(w io.Writer, quiet bool) *Progress {
	return &Progress{w: w, quiet: quiet}
}

// Report prints the label of phase. Repeats of the same phase are dropped.
func (p *Progress) Report(phase types.Phase) {
	if phase == p.last {
		return
	}
	p.last = phase

	if p.quiet && phase.IsInstallStep() {
		return
	}

	indent := ""
	if phase.IsInstallStep() {
		indent = "  "
	}
	_, _ = fmt.Fprintf(p.w, "%s%s...\n", indent, phase.Label())
}
