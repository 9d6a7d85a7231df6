package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/stats"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseTeamStats reads a delimited team-stat table with a header row into raw
// records, one per team. Comma, semicolon and tab delimiters are detected
// from the header. Empty cells are left out of the record.
func ParseTeamStats(r io.Reader) ([]models.RawRecord, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	firstLine, err := br.Peek(peekSize(br))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(firstLine)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty team stats file: %w", utils.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("malformed header: %v: %w", err, utils.ErrInvalidInput)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []models.RawRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed row: %v: %w", err, utils.ErrInvalidInput)
		}
		line, _ := reader.FieldPos(0)

		if blankRow(row) {
			continue
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d: %w", line, len(row), len(header), utils.ErrInvalidInput)
		}

		rec := make(models.RawRecord, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				rec[name] = v
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// IndexByTeam keys records by lower-cased team name.
func IndexByTeam(records []models.RawRecord) (map[string]models.RawRecord, error) {
	index := make(map[string]models.RawRecord, len(records))
	for i, rec := range records {
		team, ok := stats.ResolveTeamName(rec)
		if !ok {
			return nil, fmt.Errorf("record %d: no team name: %w", i+1, utils.ErrInvalidRecord)
		}
		key := strings.ToLower(team)
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("team %q appears more than once: %w", team, utils.ErrInvalidInput)
		}
		index[key] = rec
	}
	return index, nil
}

// FindTeam looks a team up case-insensitively
func FindTeam(index map[string]models.RawRecord, name string) (models.RawRecord, bool) {
	rec, ok := index[strings.ToLower(strings.TrimSpace(name))]
	return rec, ok
}

func sniffDelimiter(header []byte) rune {
	if i := bytes.IndexByte(header, '\n'); i >= 0 {
		header = header[:i]
	}

	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(header, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func peekSize(br *bufio.Reader) int {
	if n := br.Buffered(); n > 0 {
		return n
	}
	return br.Size()
}

func blankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
