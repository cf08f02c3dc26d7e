package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/crawlcore/internal/model"
)

// maxRecordLine bounds one JSONL record. A record may carry a base64 body of
// up to model.MaxPageSize plus its metadata.
const maxRecordLine = model.MaxPageSize*4/3 + 64*1024

// ErrInvalidRecord is returned by a RecordSource for a record it could not
// decode. The source stays usable and the next call moves past the record.
var ErrInvalidRecord = errors.New("invalid fetch record")

// RecordSource yields fetch records one at a time.
// Next returns io.EOF when no records are left. An error wrapping
// ErrInvalidRecord concerns one record only; any other error ends the source.
type RecordSource interface {
	Next(ctx context.Context) (*model.FetchRecord, error)
}

// JSONLSource reads fetch records from a JSON Lines stream.
// Blank lines and lines starting with '#' are skipped.
type JSONLSource struct {
	scanner *bufio.Scanner
	line    int
}

// NewJSONLSource creates a source reading from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLine)
	return &JSONLSource{scanner: scanner}
}

// Next returns the next record.
func (s *JSONLSource) Next(ctx context.Context) (*model.FetchRecord, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read fetch log line %d: %w", s.line+1, err)
			}
			return nil, io.EOF
		}
		s.line++

		text := strings.TrimSpace(s.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var rec model.FetchRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("%w on line %d: %w", ErrInvalidRecord, s.line, err)
		}
		return &rec, nil
	}
}
