package fitness

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"symreg/internal/expr"
)

// LoadCSV reads probes from a CSV file with a header row. The column named
// target holds the expected value (the last column when target is empty);
// every other column becomes a variable.
func LoadCSV(path, target string) (Dataset, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("dataset csv path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset csv %s: %w", path, err)
	}
	defer f.Close()

	dataset, err := ReadCSV(f, target)
	if err != nil {
		return nil, fmt.Errorf("dataset csv %s: %w", path, err)
	}
	return dataset, nil
}

func ReadCSV(r io.Reader, target string) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("need at least one variable and one target column, got %d columns", len(header))
	}

	targetIdx := len(header) - 1
	if target = strings.TrimSpace(target); target != "" {
		targetIdx = -1
		for i, name := range header {
			if strings.TrimSpace(name) == target {
				targetIdx = i
				break
			}
		}
		if targetIdx < 0 {
			return nil, fmt.Errorf("target column %q not found", target)
		}
	}

	dataset := make(Dataset, 0, 256)
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++

		probe := Probe{Context: make(expr.Context, len(header)-1)}
		for i, field := range record {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("parse row %d column %s: %w", row, header[i], err)
			}
			if i == targetIdx {
				probe.Expected = value
				continue
			}
			probe.Context[strings.TrimSpace(header[i])] = value
		}
		dataset = append(dataset, probe)
	}

	if len(dataset) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return dataset, nil
}

// WriteCSV writes ds in the layout ReadCSV accepts: the dataset variables in
// sorted order followed by the target column.
func WriteCSV(w io.Writer, ds Dataset, target string) error {
	if len(ds) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	if target = strings.TrimSpace(target); target == "" {
		target = "target"
	}
	vars := ds.Variables()
	for _, name := range vars {
		if name == target {
			return fmt.Errorf("target column %q collides with a variable", target)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(append(append([]string(nil), vars...), target)); err != nil {
		return err
	}
	record := make([]string, len(vars)+1)
	for i, probe := range ds {
		for j, name := range vars {
			value, ok := probe.Context[name]
			if !ok {
				return fmt.Errorf("probe %d: %w", i, &expr.MissingVariableError{Name: name})
			}
			record[j] = strconv.FormatFloat(value, 'g', -1, 64)
		}
		record[len(vars)] = strconv.FormatFloat(probe.Expected, 'g', -1, 64)
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
