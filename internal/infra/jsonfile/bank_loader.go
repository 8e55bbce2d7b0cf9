package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"timed-quiz-service/internal/domain"
)

// BankLoader reads the question bank from a JSON file. The file keeps the
// original interchange format: an array of objects with "id", "pregunta",
// "opciones" and "respuesta_correcta" keys.
type BankLoader struct {
	path string
}

func NewBankLoader(path string) *BankLoader {
	return &BankLoader{path: path}
}

type bankEntry struct {
	ID      flexID   `json:"id"`
	Text    string   `json:"pregunta"`
	Options []string `json:"opciones"`
	Answer  string   `json:"respuesta_correcta"`
}

// flexID accepts both integer and string question ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (l *BankLoader) LoadBank(_ context.Context) (domain.Bank, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBankNotFound, l.path)
		}
		return nil, err
	}

	var entries []bankEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBankFormat, err)
	}

	bank := make(domain.Bank, 0, len(entries))
	for _, e := range entries {
		bank = append(bank, domain.Question{
			ID:            string(e.ID),
			Text:          e.Text,
			Options:       e.Options,
			CorrectAnswer: e.Answer,
		})
	}
	if err := domain.ValidateBank(bank); err != nil {
		return nil, err
	}
	return bank, nil
}
