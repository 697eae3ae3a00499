// Package diagnostic defines the defect model shared by every pipeline stage
// and the conversion of defects into editor-facing diagnostics.
package diagnostic

import (
	"encoding/json"

	"github.com/walteh/saltls/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// Stage identifies which pipeline stage recorded a defect.
type Stage string

const (
	StageTokenizer    Stage = "tokenizer"
	StageTemplateTree Stage = "template-parse"
	StageStateTree    Stage = "state-parse"
	StageMerge        Stage = "merge"
)

// Defect is a recoverable problem found while processing a document. No stage
// ever fails on a defect; it records one and keeps going.
type Defect struct {
	Range   position.Range
	Message string
	Stage   Stage
}

func NewDefect(stage Stage, rng position.Range, message string) Defect {
	return Defect{Range: rng, Message: message, Stage: stage}
}

// DiagnosticSeverity represents the severity level of a diagnostic.
type DiagnosticSeverity string

const (
	Error   DiagnosticSeverity = "error"
	Warning DiagnosticSeverity = "warning"
	Info    DiagnosticSeverity = "info"
	Hint    DiagnosticSeverity = "hint"
)

// Diagnostic is a single editor-facing message.
type Diagnostic struct {
	Message  string
	Range    position.Range
	Severity DiagnosticSeverity
	Source   Stage
}

// severityOf maps stages to severities: structural problems in the state
// document are warnings (the file may simply be mid-edit), merge ambiguity is
// informational, everything else is a warning too. None are errors because no
// defect in this pipeline is fatal.
func severityOf(stage Stage) DiagnosticSeverity {
	if stage == StageMerge {
		return Info
	}
	return Warning
}

// FromDefects converts pipeline defects into diagnostics in document order.
func FromDefects(defects []Defect) []Diagnostic {
	diags := make([]Diagnostic, 0, len(defects))
	for _, d := range defects {
		diags = append(diags, Diagnostic{
			Message:  d.Message,
			Range:    d.Range,
			Severity: severityOf(d.Stage),
			Source:   d.Stage,
		})
	}
	return diags
}

// Formatter formats diagnostics into different output formats.
type Formatter interface {
	Format(diagnostics []Diagnostic) ([]byte, error)
}

// VSCodeFormatter formats diagnostics into the shape VSCode consumes.
type VSCodeFormatter struct{}

func NewVSCodeFormatter() *VSCodeFormatter {
	return &VSCodeFormatter{}
}

type vscodePlace struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type vscodeRange struct {
	Start vscodePlace `json:"start"`
	End   vscodePlace `json:"end"`
}

type vscodeDiagnostic struct {
	Severity int         `json:"severity"`
	Message  string      `json:"message"`
	Source   string      `json:"source"`
	Range    vscodeRange `json:"range"`
}

// Format implements Formatter.
func (f *VSCodeFormatter) Format(diagnostics []Diagnostic) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.New("diagnostics is nil")
	}

	severities := map[DiagnosticSeverity]int{
		Error:   1,
		Warning: 2,
		Info:    3,
		Hint:    4,
	}

	result := make([]vscodeDiagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		result = append(result, vscodeDiagnostic{
			Severity: severities[d.Severity],
			Message:  d.Message,
			Source:   string(d.Source),
			Range: vscodeRange{
				Start: vscodePlace{Line: d.Range.Start.Line, Character: d.Range.Start.Col},
				End:   vscodePlace{Line: d.Range.End.Line, Character: d.Range.End.Col},
			},
		})
	}

	return json.Marshal(result)
}
