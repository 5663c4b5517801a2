package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/tpln/gateway/internal/purge"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	bold     = color.New(color.Bold).SprintFunc()
)

func printReport(w io.Writer, report *purge.Report) {
	title := "Purge " + report.Store
	if report.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(w, bold(title))

	for _, res := range report.Results {
		switch {
		case res.Error != "":
			fmt.Fprintf(w, "  %s %s: %s\n", failMark("✗"), res.Key, res.Error)
		case res.Removed:
			fmt.Fprintf(w, "  %s %s: removed %d\n", okMark("✓"), res.Key, res.Found)
		case res.Found == 0:
			fmt.Fprintf(w, "  %s %s: empty\n", okMark("·"), res.Key)
		default:
			fmt.Fprintf(w, "  %s %s: %d found\n", warnMark("!"), res.Key, res.Found)
		}
	}

	fmt.Fprintf(w, "Total: %d found, %d removed\n", report.TotalFound(), report.TotalRemoved())
}
