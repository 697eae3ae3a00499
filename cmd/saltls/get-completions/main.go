package get_completions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/saltls/pkg/completion"
	"github.com/walteh/saltls/pkg/position"
	"github.com/walteh/saltls/pkg/workspace"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	file      string
	line      int
	col       int
	catalogue string
}

func NewGetCompletionsCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "get-completions [file]",
		Short: "print completion candidates for a cursor position",
	}

	cmd.Flags().IntVar(&me.line, "line", 0, "zero-based cursor line")
	cmd.Flags().IntVar(&me.col, "col", 0, "zero-based cursor column")
	cmd.Flags().StringVar(&me.catalogue, "catalogue", "", "path to the state catalogue file")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	fsys := afero.NewOsFs()

	cat := completion.NewCatalogue(nil, nil)
	if me.catalogue != "" {
		loaded, err := completion.LoadCatalogue(fsys, me.catalogue)
		if err != nil {
			return errors.Errorf("loading catalogue: %w", err)
		}
		cat = loaded
	}

	text, err := afero.ReadFile(fsys, me.file)
	if err != nil {
		return errors.Errorf("reading %s: %w", me.file, err)
	}

	ws := workspace.New(fsys)
	doc, err := ws.Open(ctx, me.file, string(text))
	if err != nil {
		return errors.Errorf("parsing %s: %w", me.file, err)
	}

	items := completion.Candidates(ctx, doc, position.New(me.line, me.col), cat, completion.Options{
		Includes: ws.SlsIncludes(me.file),
	})

	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.Errorf("encoding completions: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
