package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Table is an ordered collection of float rows with named columns. The
// engine copies, shuffles, and slices tables; it never mutates rows in
// place except via explicit reassignment.
type Table struct {
	Columns []string
	Rows    [][]float64

	// IntColumns marks columns written without a fractional part.
	IntColumns map[string]bool
}

func (t Table) NumRows() int    { return len(t.Rows) }
func (t Table) NumColumns() int { return len(t.Columns) }

// ColumnIndex reports the index of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Data couples a loaded table with the simulation schema it was validated
// against.
type Data struct {
	Info  Info
	Table Table

	// GANColumns is the count of generation-parameter columns that follow
	// the sim input/output block, zero when the CSV carries none.
	GANColumns int
}

// LoadOptions controls schema verification during CSV loading.
type LoadOptions struct {
	// GANN is the configured generation-parameter count. When the CSV
	// carries trailing columns beyond the sim schema, their count must
	// equal GANN exactly; carrying none is always accepted.
	GANN int
}

// Load reads a CSV file and verifies its columns against the schema.
func Load(path string, info Info, opts LoadOptions) (*Data, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load simulation data: %w", err)
	}
	defer f.Close()
	d, err := readData(f, info, opts)
	if err != nil {
		return nil, fmt.Errorf("load simulation data from %s: %w", path, err)
	}
	return d, nil
}

func readData(r io.Reader, info Info, opts LoadOptions) (*Data, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV input")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	numSim := info.NumSimColumns()
	if len(header) < numSim {
		return nil, fmt.Errorf("CSV has %d columns but the simulation schema requires at least %d", len(header), numSim)
	}
	ganColumns := len(header) - numSim
	if ganColumns != 0 && ganColumns != opts.GANN {
		return nil, fmt.Errorf("there are GAN gen columns present, but the number of GAN columns available in the input CSV data does not match the configured gan_n: %d != %d", ganColumns, opts.GANN)
	}

	rows := make([][]float64, 0)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", line, len(record), len(header))
		}
		row := make([]float64, len(record))
		for i, field := range record {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", line, header[i], err)
			}
			row[i] = value
		}
		rows = append(rows, row)
	}

	return &Data{
		Info:       info,
		Table:      Table{Columns: append([]string(nil), header...), Rows: rows},
		GANColumns: ganColumns,
	}, nil
}

// Save writes a table as CSV. Columns named in table.IntColumns are
// rendered as integers.
func Save(path string, table Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save simulation data: %w", err)
	}
	defer f.Close()
	if err := writeTable(f, table); err != nil {
		return fmt.Errorf("save simulation data to %s: %w", path, err)
	}
	return nil
}

func writeTable(w io.Writer, table Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Columns); err != nil {
		return err
	}
	intColumn := make([]bool, len(table.Columns))
	for i, name := range table.Columns {
		intColumn[i] = table.IntColumns[name]
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("row has %d fields, table has %d columns", len(row), len(table.Columns))
		}
		for i, value := range row {
			if intColumn[i] {
				record[i] = strconv.FormatInt(int64(math.Round(value)), 10)
			} else {
				record[i] = strconv.FormatFloat(value, 'f', -1, 64)
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
