package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/formstep/internal/theme"
)

// StyleOptions holds flags for the style command.
type StyleOptions struct {
	*RootOptions
	FormID string
	CSS    bool // print only the stylesheet
}

// NewStyleCommand creates the style command.
func NewStyleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StyleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "style <form-file>",
		Short: "Show the resolved theme of a form",
		Long: `Resolve a form's theme into CSS variables, container styles and a
stylesheet. Unset theme values take their defaults.

Examples:
  formstep style signup.cue
  formstep style forms.cue --form feedback --css > feedback.css`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStyle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FormID, "form", "", "form id when the file holds several")
	cmd.Flags().BoolVar(&opts.CSS, "css", false, "print only the stylesheet")

	return cmd
}

func runStyle(opts *StyleOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	f, err := requireValid(formatter, path, opts.FormID)
	if err != nil {
		return err
	}
	d := theme.Resolve(f.Theme)

	if opts.CSS && !formatter.IsJSON() {
		_, err := io.WriteString(formatter.Writer, d.Stylesheet)
		return err
	}

	return formatter.Text(d, func(w io.Writer) {
		fmt.Fprintf(w, "form:         %s\n", f.ID)
		fmt.Fprintf(w, "max width:    %s\n", d.MaxWidth)
		fmt.Fprintf(w, "text align:   %s\n", d.TextAlign)
		fmt.Fprintf(w, "button class: %s\n", d.ButtonClass)
		if d.Logo != nil {
			fmt.Fprintf(w, "logo:         %s %dx%d (%s)\n", d.Logo.Src, d.Logo.Width, d.Logo.Height, d.Logo.Justify)
		}
		fmt.Fprintln(w, "variables:")
		for _, k := range sortedKeys(d.Variables) {
			fmt.Fprintf(w, "  %s: %s\n", k, d.Variables[k])
		}
		fmt.Fprintf(w, "container:    %s\n", d.InlineStyle())
		if d.Custom {
			fmt.Fprintln(w, "stylesheet:   custom")
		}
	})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
