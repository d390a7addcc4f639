package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Row is one record as seen by the CSV encoder: column name to value.
// Columns absent from the row are written as empty cells.
type Row map[string]any

const flushEvery = 100

// ToRow is the default transform. Rows and string-keyed maps are used as
// they are, anything else goes through its JSON form so struct tags name
// the columns. Values whose JSON form is not an object yield an empty row.
func ToRow(v any) (Row, error) {
	switch r := v.(type) {
	case Row:
		return r, nil
	case map[string]any:
		return Row(r), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return Row{}, nil
	}
	return Row(obj), nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}

// writeCSV streams records through transform into a CSV file at path with
// a header row of fields, flushing to disk as it goes. It returns the size
// of the finished file.
func writeCSV[T any](ctx context.Context, path string, fields []string, records []T, transform func(T) (Row, error)) (size int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create staging file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close staging file: %w", cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(fields); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	line := make([]string, len(fields))
	for i, record := range records {
		if i%flushEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		row, err := transform(record)
		if err != nil {
			return 0, fmt.Errorf("transform record %d: %w", i, err)
		}
		for j, field := range fields {
			line[j] = formatCell(row[field])
		}
		if err := w.Write(line); err != nil {
			return 0, fmt.Errorf("write record %d: %w", i, err)
		}

		if (i+1)%flushEvery == 0 {
			w.Flush()
			if err := w.Error(); err != nil {
				return 0, fmt.Errorf("flush staging file: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush staging file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat staging file: %w", err)
	}
	return info.Size(), nil
}
