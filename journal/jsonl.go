package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

const maxLineBytes = 4 << 20

// AppendJSONL marshals v and appends it to path as one line. The file is
// opened in append mode and closed before returning, and the line goes out
// in a single write so concurrent appenders never interleave within a row.
func AppendJSONL(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal jsonl row: %w", err)
	}
	if bytes.ContainsRune(line, '\n') {
		return errors.New("marshal jsonl row: unexpected newline")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadJSONL returns every well-formed JSON object in path, in file order.
// Blank and malformed lines are skipped and counted. A missing file is not
// an error.
func ReadJSONL(path string) (rows []json.RawMessage, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) || !gjson.ParseBytes(line).IsObject() {
			skipped++
			continue
		}
		rows = append(rows, json.RawMessage(append([]byte(nil), line...)))
	}
	if err := sc.Err(); err != nil {
		return rows, skipped, err
	}
	return rows, skipped, nil
}
