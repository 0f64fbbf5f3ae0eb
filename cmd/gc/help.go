package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/ui"
	"github.com/spf13/cobra"
)

// helpRule rewrites every match of re in cobra's plain help text.
type helpRule struct {
	re     *regexp.Regexp
	render func(parts []string) string
}

var helpRules = []helpRule{
	// Section headers such as "Gate checks:" or "Flags:". "Usage:" stays plain.
	{
		re: regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`),
		render: func(p []string) string {
			if p[1] == "Usage:" {
				return p[0]
			}
			return ui.RenderAccent(p[1])
		},
	},
	// Command names in the command listing.
	{
		re:     regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(  +)`),
		render: func(p []string) string { return p[1] + ui.RenderCommand(p[2]) + p[3] },
	},
	// Flag value types, e.g. "--actor string".
	{
		re:     regexp.MustCompile(`(--?[\w-]+\s+)(string|int|duration|strings|stringSlice)\b`),
		render: func(p []string) string { return p[1] + ui.RenderMuted(p[2]) },
	},
	{
		re:     regexp.MustCompile(`\(default [^)]*\)`),
		render: func(p []string) string { return ui.RenderMuted(p[0]) },
	},
}

// colorizedHelpFunc returns a help function that colors cobra's default
// output when stdout supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if noColor || !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)

		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, rule := range helpRules {
		s = rule.re.ReplaceAllStringFunc(s, func(match string) string {
			return rule.render(rule.re.FindStringSubmatch(match))
		})
	}
	return strings.TrimRight(s, "\n") + "\n"
}
