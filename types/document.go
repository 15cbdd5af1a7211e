package types

import "time"

// DocumentVersion is one immutable snapshot of the document under
// refinement. Version numbers are the sole identity — there is no
// content addressing, per the Store's contract.
type DocumentVersion struct {
	Version                  int       `json:"version"`
	Title                    string    `json:"title"`
	DocumentType             string    `json:"document_type"`
	Content                  string    `json:"content"`
	CreatedAt                time.Time `json:"created_at"`
	ProducingModeratorVersion int      `json:"producing_moderator_version,omitempty"`
	LengthChars              int       `json:"length_chars"`
}

// NewDocumentVersion builds a DocumentVersion, deriving LengthChars from
// Content so callers never have to keep the two in sync by hand.
func NewDocumentVersion(version int, title, documentType, content string, createdAt time.Time) DocumentVersion {
	return DocumentVersion{
		Version:      version,
		Title:        title,
		DocumentType: documentType,
		Content:      content,
		CreatedAt:    createdAt,
		LengthChars:  len([]rune(content)),
	}
}

// ConvergenceCheck records the StopDecision evaluated for one iteration,
// alongside the delta measured against the prior iteration's output (0 on
// iteration 1, by definition).
type ConvergenceCheck struct {
	ShouldStop bool      `json:"should_stop"`
	Reason     string    `json:"reason"`
	StoppedBy  StoppedBy `json:"stopped_by"`
	Delta      float64   `json:"delta"`
}

// IterationRecord is the persisted record of one roundtable iteration:
// the reviews collected against InputVersion, the convergence decision
// made from them, and — unless the iteration stopped before moderation —
// the version the moderator produced.
type IterationRecord struct {
	IterationIndex   int               `json:"iteration_index"`
	InputVersion     int               `json:"input_version"`
	Reviews          []Review          `json:"reviews"`
	ConvergenceCheck ConvergenceCheck  `json:"convergence_check"`
	OutputVersion    int               `json:"output_version,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          time.Time         `json:"ended_at"`
}
