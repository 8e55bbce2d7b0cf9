package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// Fixed header fields preceding the per-question columns.
var fixedHeader = []string{"usuario", "fecha", "puntaje", "tiempo_usado", "nivel"}

// ResultStore appends attempts to a delimited text file, one row per attempt.
// A new file starts with a header; appends omit it. Each row is written with
// a single O_APPEND write so concurrent writers never interleave partial
// rows. Read-back is permissive: rows that no longer match the header (for
// example written against an older bank) are skipped, not repaired.
type ResultStore struct {
	path string
	mu   sync.Mutex
}

func NewResultStore(path string) *ResultStore {
	return &ResultStore{path: path}
}

func (s *ResultStore) Append(_ context.Context, record domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(headerFor(record)); err != nil {
			return err
		}
	}
	if err := w.Write(rowFor(record)); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return f.Sync()
}

func (s *ResultStore) QueryAll(_ context.Context) ([]domain.AttemptRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.AttemptRecord{}, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows from older bank versions may be narrower

	header, err := r.Read()
	if err == io.EOF {
		return []domain.AttemptRecord{}, nil
	}
	// An unreadable header line loses the per-question column mapping but the
	// fixed columns of later rows are still worth salvaging.
	var questionIDs []string
	if err == nil {
		questionIDs = questionIDsFrom(header)
	}

	records := make([]domain.AttemptRecord, 0)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// malformed row: skip, keep reading
			continue
		}
		record, ok := parseRow(row, questionIDs)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *ResultStore) QueryByUser(ctx context.Context, user string) ([]domain.AttemptRecord, error) {
	all, err := s.QueryAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AttemptRecord, 0)
	for _, r := range all {
		if r.User == user {
			out = append(out, r)
		}
	}
	return out, nil
}

// Write renders records in the same delimited layout the store persists,
// header first. Used by the results export endpoint.
func Write(w io.Writer, records []domain.AttemptRecord) error {
	cw := csv.NewWriter(w)
	if len(records) > 0 {
		if err := cw.Write(headerFor(records[0])); err != nil {
			return err
		}
		for _, r := range records {
			if err := cw.Write(rowFor(r)); err != nil {
				return err
			}
		}
	} else {
		if err := cw.Write(fixedHeader); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// headerFor derives the column layout from a record: fixed fields plus three
// columns per question in bank order. Row width is constant for a given bank.
func headerFor(record domain.AttemptRecord) []string {
	header := append([]string(nil), fixedHeader...)
	for _, a := range record.Answers {
		header = append(header,
			a.QuestionID+"_pregunta",
			a.QuestionID+"_respuesta_usuario",
			a.QuestionID+"_respuesta_correcta",
		)
	}
	return header
}

func rowFor(record domain.AttemptRecord) []string {
	row := []string{
		record.User,
		record.Timestamp.Format(timeLayout),
		strconv.Itoa(record.Score),
		record.TimeUsed,
		string(record.Tier),
	}
	for _, a := range record.Answers {
		row = append(row, a.QuestionText, a.UserAnswer, a.CorrectAnswer)
	}
	return row
}

func questionIDsFrom(header []string) []string {
	ids := make([]string, 0)
	for i := len(fixedHeader); i+2 < len(header); i += 3 {
		ids = append(ids, strings.TrimSuffix(header[i], "_pregunta"))
	}
	return ids
}

func parseRow(row []string, questionIDs []string) (domain.AttemptRecord, bool) {
	if len(row) < len(fixedHeader) {
		return domain.AttemptRecord{}, false
	}
	score, err := strconv.Atoi(row[2])
	if err != nil {
		return domain.AttemptRecord{}, false
	}
	ts, err := time.Parse(timeLayout, row[1])
	if err != nil {
		return domain.AttemptRecord{}, false
	}

	record := domain.AttemptRecord{
		User:      row[0],
		Timestamp: ts,
		Score:     score,
		TimeUsed:  row[3],
		Tier:      domain.Tier(row[4]),
	}
	for i, id := range questionIDs {
		base := len(fixedHeader) + i*3
		if base+2 >= len(row) {
			break // row written against a smaller bank
		}
		record.Answers = append(record.Answers, domain.QuestionAnswer{
			QuestionID:    id,
			QuestionText:  row[base],
			UserAnswer:    row[base+1],
			CorrectAnswer: row[base+2],
		})
	}
	return record, true
}
