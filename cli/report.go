package cli

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/core"
	"github.com/santiagomed/patchwork/tool"
	"go.uber.org/multierr"
)

// errRunFailed tells Execute the failure report was already printed.
var errRunFailed = errors.New("run failed")

// FailureReport explains every failed step: name, position, cause and, for
// external tools, the captured output. The tree is left as the run left it.
func FailureReport(report *core.Report, err error) string {
	var b strings.Builder

	var stepErrs []*core.StepError
	for _, e := range multierr.Errors(err) {
		var se *core.StepError
		if errors.As(e, &se) {
			stepErrs = append(stepErrs, se)
		} else {
			fmt.Fprintf(&b, "%s %v\n", failStyle.Render("✗"), e)
		}
	}

	for _, se := range stepErrs {
		fmt.Fprintf(&b, "%s step %d/%d %s failed\n", failStyle.Render("✗"), se.Index+1, se.Total, nameStyle.Render(se.Step))

		var toolErr *tool.ExternalToolError
		if errors.As(se.Err, &toolErr) {
			fmt.Fprintf(&b, "  command:   %s\n", tool.CommandLine(toolErr.Command, toolErr.Args))
			fmt.Fprintf(&b, "  exit code: %d\n", toolErr.ExitCode)
			if out := strings.TrimSpace(toolErr.Stderr); out != "" {
				b.WriteString("  stderr:\n" + indent(tail(out, 20), "    ") + "\n")
			}
			if out := strings.TrimSpace(toolErr.Stdout); out != "" {
				b.WriteString("  stdout:\n" + indent(tail(out, 10), "    ") + "\n")
			}
			continue
		}
		fmt.Fprintf(&b, "  %v\n", se.Err)
	}

	if report != nil {
		if report.State == core.Aborted {
			remaining := 0
			for _, s := range report.Steps {
				if s.State == core.Pending {
					remaining++
				}
			}
			fmt.Fprintf(&b, "\nPipeline aborted at %s; %d step(s) did not run.\n", report.FailedStep, remaining)
		}
		b.WriteString(faintStyle.Render("The project was left as is. Fix the cause and run again; with the journal on, finished steps are skipped."))
		b.WriteString("\n")
	}
	return b.String()
}

func tail(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
