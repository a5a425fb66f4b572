package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/johndauphine/archive-engine/internal/engine"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).PaddingLeft(2)
	bannerStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// printRunSummary writes a short human-readable banner describing a
// completed run to stdout. Styling is skipped when stdout isn't a
// terminal, so piped or redirected output stays plain text.
func printRunSummary(result engine.Result) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		printPlainSummary(result)
		return
	}

	status := successStyle.Render("RUN SUCCEEDED")
	if !result.Succeeded {
		status = failureStyle.Render("RUN FAILED")
	}

	body := status
	if len(result.Messages) > 0 {
		body += "\n" + headingStyle.Render("messages:")
		for _, m := range result.Messages {
			body += "\n" + messageStyle.Render(m)
		}
	}

	fmt.Fprintln(os.Stdout, bannerStyle.Render(body))
}

func printPlainSummary(result engine.Result) {
	if result.Succeeded {
		fmt.Fprintln(os.Stdout, "RUN SUCCEEDED")
	} else {
		fmt.Fprintln(os.Stdout, "RUN FAILED")
	}
	for _, m := range result.Messages {
		fmt.Fprintf(os.Stdout, "  %s\n", m)
	}
}
