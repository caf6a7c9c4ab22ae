// Package align classifies bill summaries against a client organization's
// mission using a generative model, producing a categorical alignment label
// plus a short justification.
package align

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// Label is the categorical alignment outcome.
type Label string

const (
	LabelAligned   Label = "Alinha"
	LabelPartial   Label = "Parcial"
	LabelUnaligned Label = "Não Alinha"
)

// Result is one classification outcome.
type Result struct {
	Label         Label
	Justification string
}

// Org is the client organization a summary is evaluated against.
type Org struct {
	Name    string
	Mission string
}

// Classifier produces an alignment label for a summary. Implementations are
// expected to be idempotent for identical inputs.
type Classifier interface {
	Classify(ctx context.Context, summary string, org Org) (Result, error)
}

// Stock justifications used when the model output cannot be trusted. An
// unparseable response downgrades to the lowest-confidence label instead of
// failing the batch.
const (
	justEmptySummary = "Ementa ausente ou vazia; não é possível concluir o alinhamento."
	justNoJSON       = "Saída do modelo sem JSON válido; revisão manual recomendada."
	justBadJSON      = "Falha ao interpretar JSON; revisão manual recomendada."
	justMissing      = "Sem justificativa; revisar."
)

// EmptySummaryResult is returned for summaries with no text to judge.
func EmptySummaryResult() Result {
	return Result{Label: LabelPartial, Justification: justEmptySummary}
}

var rxJSONBlob = regexp.MustCompile(`(?s)\{.*\}`)

// DecodeResult extracts the first JSON object from raw model output and
// validates it. Anything unparseable or out of vocabulary degrades to
// Parcial with a stock justification.
func DecodeResult(raw string) Result {
	blob := rxJSONBlob.FindString(raw)
	if blob == "" {
		return Result{Label: LabelPartial, Justification: justNoJSON}
	}
	var payload struct {
		Alignment     string `json:"alinhamento"`
		Justification string `json:"justificativa"`
	}
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		return Result{Label: LabelPartial, Justification: justBadJSON}
	}
	label := Label(strings.TrimSpace(payload.Alignment))
	switch label {
	case LabelAligned, LabelPartial, LabelUnaligned:
	default:
		label = LabelPartial
	}
	just := strings.TrimSpace(payload.Justification)
	if just == "" {
		just = justMissing
	}
	return Result{Label: label, Justification: just}
}
