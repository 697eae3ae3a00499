package jinja

import (
	"fmt"

	"github.com/walteh/saltls/pkg/diagnostic"
	"github.com/walteh/saltls/pkg/position"
)

// Parse consumes a token stream into a templating tree rooted at a synthetic
// branch. It never fails: an unterminated block is closed implicitly at
// end-of-input and a stray or mismatched keyword attaches to the innermost
// open block, each case recorded as a defect. The returned tree has zero open
// blocks for any input.
func Parse(tokens []Token) (*BranchNode, []diagnostic.Defect) {
	root := &BranchNode{}
	var defects []diagnostic.Defect

	// branches[0] is the root; every open block contributes its currently
	// open branch on top, so len(branches) == len(blocks)+1 throughout.
	branches := []*BranchNode{root}
	var blocks []*BlockNode

	top := func() *BranchNode { return branches[len(branches)-1] }

	for _, tok := range tokens {
		switch tok.Type {
		case TokenData:
			top().Body = append(top().Body, &DataNode{Rng: tok.Rng, Data: tok.Text})

		case TokenVariable:
			top().Body = append(top().Body, &VariableNode{Rng: tok.Rng, Expression: tok.Text})

		case TokenComment:
			// Comments carry no structure.

		case TokenBlock:
			switch tok.Kind {
			case "if", "for":
				blk := newBlockNode(tok)
				top().Body = append(top().Body, blk)
				blocks = append(blocks, blk)
				branches = append(branches, blk.Branches[0])

			case "elif", "else":
				if len(blocks) == 0 {
					defects = append(defects, diagnostic.NewDefect(
						diagnostic.StageTemplateTree, tok.Rng,
						fmt.Sprintf("'%s' outside of any open block", tok.Kind),
					))
					continue
				}
				blk := blocks[len(blocks)-1]
				if tok.Kind == "elif" && blk.Kind == "for" {
					defects = append(defects, diagnostic.NewDefect(
						diagnostic.StageTemplateTree, tok.Rng,
						"'elif' inside a 'for' block",
					))
				}
				top().close()
				branches = branches[:len(branches)-1]
				branch := newBranchNode(tok)
				blk.Branches = append(blk.Branches, branch)
				branches = append(branches, branch)

			case "endif", "endfor":
				if len(blocks) == 0 {
					defects = append(defects, diagnostic.NewDefect(
						diagnostic.StageTemplateTree, tok.Rng,
						fmt.Sprintf("'%s' without a matching open block", tok.Kind),
					))
					continue
				}
				top().close()
				branches = branches[:len(branches)-1]
				blk := blocks[len(blocks)-1]
				blocks = blocks[:len(blocks)-1]
				if "end"+blk.Kind != tok.Kind {
					defects = append(defects, diagnostic.NewDefect(
						diagnostic.StageTemplateTree, tok.Rng,
						fmt.Sprintf("'%s' closes a '%s' block", tok.Kind, blk.Kind),
					))
				}
				end := tok
				blk.close(&end)

			default:
				// Statements like "set" have no tree structure of their own
				// and are not emitted by the compiler either.
			}
		}
	}

	// Implicit closure: any block still open at end-of-input closes here.
	for len(blocks) > 0 {
		top().close()
		branches = branches[:len(branches)-1]
		blk := blocks[len(blocks)-1]
		blocks = blocks[:len(blocks)-1]
		blk.close(nil)
		defects = append(defects, diagnostic.NewDefect(
			diagnostic.StageTemplateTree,
			position.NewRange(blk.Rng.Start, blk.Rng.End),
			fmt.Sprintf("unterminated '%s' block, closed at end of input", blk.Kind),
		))
	}

	root.close()
	if len(tokens) > 0 {
		if last := tokens[len(tokens)-1].Rng.End; last.After(root.Rng.End) {
			root.Rng.End = last
		}
	}

	return root, defects
}
