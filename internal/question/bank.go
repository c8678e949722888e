// internal/question/bank.go
package question

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// ErrEmptyBank indicates the bank held zero playable questions. This is a
// configuration problem (bad or missing CSV), not a user error, and callers
// are expected to surface it loudly server-side.
var ErrEmptyBank = errors.New("question bank is empty")

// Question is one playable entry from the bank. Immutable once loaded.
type Question struct {
	ID          string
	Prompt      string
	Choices     [3]string
	Answer      string
	Explanation string
}

// Bank reads questions from a CSV file. Load re-reads the file on every
// call, so the CSV can be edited while the server runs and the next round
// picks up the changes. There is deliberately no caching layer.
type Bank struct {
	Path string
}

// NewBank returns a Bank bound to a CSV file path.
func NewBank(path string) *Bank {
	return &Bank{Path: path}
}

// Expected header columns. Column order in the file does not matter;
// lookup is by (case-insensitive) header name.
const (
	colID          = "id"
	colPrompt      = "prompt"
	colChoiceA     = "choice_a"
	colChoiceB     = "choice_b"
	colChoiceC     = "choice_c"
	colAnswer      = "answer"
	colExplanation = "explanation"
)

// Load parses the CSV and returns every valid question. Rows missing the
// prompt, any of the three choices, the answer, or the explanation are
// silently dropped. A missing id defaults to q<rownum>.
func (b *Bank) Load() ([]Question, error) {
	f, err := os.Open(b.Path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are dropped below, not fatal
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var questions []Question
	for n, row := range records[1:] {
		q := Question{
			ID:     field(row, colID),
			Prompt: field(row, colPrompt),
			Choices: [3]string{
				field(row, colChoiceA),
				field(row, colChoiceB),
				field(row, colChoiceC),
			},
			Answer:      field(row, colAnswer),
			Explanation: field(row, colExplanation),
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", n+1)
		}
		if q.Prompt == "" || q.Answer == "" || q.Explanation == "" ||
			q.Choices[0] == "" || q.Choices[1] == "" || q.Choices[2] == "" {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// PickRandom draws one question uniformly from qs.
func PickRandom(qs []Question) (Question, error) {
	if len(qs) == 0 {
		return Question{}, ErrEmptyBank
	}
	return qs[rand.Intn(len(qs))], nil
}

// PickRandomExcluding draws uniformly from the questions whose ids do not
// appear in excluded. The second return is false when every question is
// excluded; callers treat that as a normal outcome, not an error.
func PickRandomExcluding(qs []Question, excluded []string) (Question, bool) {
	ex := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		ex[id] = struct{}{}
	}
	pool := make([]Question, 0, len(qs))
	for _, q := range qs {
		if _, used := ex[q.ID]; !used {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return Question{}, false
	}
	return pool[rand.Intn(len(pool))], true
}
