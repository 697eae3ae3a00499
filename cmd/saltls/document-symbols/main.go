package document_symbols

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/saltls/pkg/document"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	file string
}

func NewDocumentSymbolsCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "document-symbols [file]",
		Short: "print the outline of a state file",
	}

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

	out, err := json.MarshalIndent(doc.Symbols(), "", "  ")
	if err != nil {
		return errors.Errorf("encoding symbols: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
