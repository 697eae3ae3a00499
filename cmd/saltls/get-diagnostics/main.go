package get_diagnostics

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/saltls/pkg/diagnostic"
	"github.com/walteh/saltls/pkg/document"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	file   string
	format string // vscode, text
}

func NewGetDiagnosticsCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "get-diagnostics [file]",
		Short: "parse a state file and print its diagnostics",
	}

	cmd.Flags().StringVar(&me.format, "format", "vscode", "the format of the diagnostics (vscode, text)")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	text, err := afero.ReadFile(afero.NewOsFs(), me.file)
	if err != nil {
		return errors.Errorf("reading %s: %w", me.file, err)
	}

	doc, err := document.Parse(ctx, string(text))
	if err != nil {
		return errors.Errorf("parsing %s: %w", me.file, err)
	}

	diags := diagnostic.FromDefects(doc.Defects)

	switch me.format {
	case "vscode":
		out, err := diagnostic.NewVSCodeFormatter().Format(diags)
		if err != nil {
			return errors.Errorf("formatting diagnostics: %w", err)
		}
		fmt.Println(string(out))
	case "text":
		for _, d := range diags {
			fmt.Printf("%s [%s] %s: %s\n", d.Range, d.Severity, d.Source, d.Message)
		}
	default:
		return errors.Errorf("unknown format %q", me.format)
	}

	return nil
}
