package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-blog/internal/generator"
	"github.com/goliatone/go-blog/internal/history"
)

var (
	headingColor = lipgloss.AdaptiveColor{Light: "#5A189A", Dark: "#C77DFF"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6C757D", Dark: "#ADB5BD"}
	successColor = lipgloss.AdaptiveColor{Light: "#2B9348", Dark: "#80ED99"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF6B6B"}
	warningColor = lipgloss.AdaptiveColor{Light: "#E85D04", Dark: "#FFBA08"}
	pathColor    = lipgloss.AdaptiveColor{Light: "#0077B6", Dark: "#90E0EF"}
)

// ui renders command summaries. Styles are bound to the output writer so
// colors are dropped when it is not a terminal.
type ui struct {
	out     io.Writer
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	path    lipgloss.Style
	box     lipgloss.Style
}

func newUI(out io.Writer) *ui {
	r := lipgloss.NewRenderer(out)
	return &ui{
		out:     out,
		title:   r.NewStyle().Foreground(headingColor).Bold(true),
		label:   r.NewStyle().Foreground(mutedColor).Width(16),
		muted:   r.NewStyle().Foreground(mutedColor),
		success: r.NewStyle().Foreground(successColor).Bold(true),
		failure: r.NewStyle().Foreground(errorColor).Bold(true),
		warning: r.NewStyle().Foreground(warningColor).Bold(true),
		path:    r.NewStyle().Foreground(pathColor).Italic(true),
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor).Padding(0, 1),
	}
}

func (u *ui) printf(format string, args ...any) {
	fmt.Fprintf(u.out, format, args...)
}

func (u *ui) row(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, u.label.Render(label), fmt.Sprint(value))
}

// Success prints a one-line confirmation.
func (u *ui) Success(msg string, args ...any) {
	u.printf("%s %s\n", u.success.Render("✓"), fmt.Sprintf(msg, args...))
}

// Warn prints a one-line warning.
func (u *ui) Warn(msg string, args ...any) {
	u.printf("%s %s\n", u.warning.Render("!"), fmt.Sprintf(msg, args...))
}

// BuildSummary prints the counts of a build result.
func (u *ui) BuildSummary(operation string, result *generator.BuildResult) {
	if result == nil {
		u.Success("%s complete", operation)
		return
	}
	heading := "Build complete"
	if result.DryRun {
		heading = "Dry run complete"
	}
	if len(result.Errors) > 0 {
		heading = u.failure.Render(fmt.Sprintf("Build finished with %d error(s)", len(result.Errors)))
	} else {
		heading = u.title.Render(heading)
	}

	rows := []string{
		heading,
		u.row("posts", result.Posts),
		u.row("pages built", result.PagesBuilt),
		u.row("pages skipped", result.PagesSkipped),
		u.row("assets built", result.AssetsBuilt),
		u.row("assets skipped", result.AssetsSkipped),
		u.row("feeds", result.FeedsWritten),
		u.row("duration", result.Duration.Round(time.Millisecond)),
	}
	u.printf("%s\n", u.box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))

	for _, err := range result.Errors {
		u.printf("%s %v\n", u.failure.Render("✗"), err)
	}
}

// Runs prints recorded build runs, newest first.
func (u *ui) Runs(runs []history.Run) {
	if len(runs) == 0 {
		u.printf("%s\n", u.muted.Render("no builds recorded"))
		return
	}
	u.printf("%s\n", u.title.Render("Recent builds"))
	for _, run := range runs {
		status := u.success.Render("ok")
		if !run.Succeeded() {
			status = u.failure.Render("failed")
		}
		cmd := strings.TrimPrefix(run.Command, "blog.site.")
		if run.DryRun {
			cmd += " (dry run)"
		}
		u.printf("%s  %-20s %-6s %4d built %4d skipped  %s\n",
			u.muted.Render(run.StartedAt.Local().Format("2006-01-02 15:04:05")),
			cmd,
			status,
			run.PagesBuilt,
			run.PagesSkipped,
			run.Duration.Round(time.Millisecond),
		)
		if !run.Succeeded() {
			u.printf("    %s\n", u.failure.Render(run.Error))
		}
	}
}
