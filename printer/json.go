package printer

import (
	"encoding/json"
	"io"

	"todo-ledger/core/token"
)

// JSONPrinter prints task information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type taskOutput struct {
	Reference     string `json:"reference"`
	Text          string `json:"text"`
	Amount        int64  `json:"amount_sats"`
	State         string `json:"state"`
	Undecryptable bool   `json:"undecryptable,omitempty"`
}

type messageOutput struct {
	Message string `json:"message"`
}

func toOutput(r token.TaskRecord) taskOutput {
	return taskOutput{
		Reference:     r.Reference.String(),
		Text:          r.Text,
		Amount:        r.Amount,
		State:         string(r.State),
		Undecryptable: r.Undecryptable,
	}
}

// PrintList prints tasks as a JSON array.
func (j *JSONPrinter) PrintList(tasks []token.TaskRecord) error {
	out := make([]taskOutput, 0, len(tasks))
	for _, r := range tasks {
		out = append(out, toOutput(r))
	}
	return j.encode(out)
}

// PrintTask prints one task as a JSON object.
func (j *JSONPrinter) PrintTask(task token.TaskRecord) error {
	return j.encode(toOutput(task))
}

// PrintMessage prints a message as a JSON object.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
