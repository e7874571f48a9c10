// Package dataset loads and cleans the historical crop records used for
// training.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/agromind-service/internal/domain"
)

// Columns every dataset must carry, matched case-insensitively.
var Columns = []string{"soil_type", "ph", "k", "p", "n", "temperature", "humidity", "label"}

// soilAliases maps spellings found in field data onto encoder labels.
var soilAliases = map[string]string{
	"clayey": domain.SoilClay,
	"loamy":  domain.SoilLoamy,
	"sandy":  domain.SoilSandy,
	"silty":  domain.SoilSilty,
	"black":  domain.SoilBlack,
	"red":    domain.SoilRed,
	"peaty":  domain.SoilPeaty,
	"saline": domain.SoilSaline,
	"clay":   domain.SoilClay,
}

// Record is one cleaned row.
type Record struct {
	SoilType    string
	PH          float64
	K           float64
	P           float64
	N           float64
	Temperature float64
	Humidity    float64
	Label       string
}

// Dataset is the cleaned content of a file.
type Dataset struct {
	Records []Record
	// Dropped counts rows discarded for missing or non-numeric fields.
	Dropped int
}

// Load reads a .csv file or the first sheet of an .xlsx workbook.
func Load(path string) (*Dataset, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	ds, err := Parse(rows)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return ds, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// Parse cleans raw rows whose first row is the header.
func Parse(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, errors.New("no header row")
	}
	index := map[string]int{}
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cols := make([]int, len(Columns))
	for i, name := range Columns {
		col, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		cols[i] = col
	}

	ds := &Dataset{}
	for _, row := range rows[1:] {
		rec, ok := parseRow(row, cols)
		if !ok {
			ds.Dropped++
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	if len(ds.Records) == 0 {
		return nil, errors.New("no usable rows")
	}
	return ds, nil
}

func parseRow(row []string, cols []int) (Record, bool) {
	cell := func(i int) string {
		if cols[i] >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[cols[i]])
	}
	var nums [6]float64
	for i := range nums {
		v, err := strconv.ParseFloat(cell(i+1), 64)
		if err != nil {
			return Record{}, false
		}
		nums[i] = v
	}
	soil, label := cell(0), cell(7)
	if soil == "" || label == "" {
		return Record{}, false
	}
	return Record{
		SoilType:    NormalizeSoilType(soil),
		PH:          nums[0],
		K:           nums[1],
		P:           nums[2],
		N:           nums[3],
		Temperature: nums[4],
		Humidity:    nums[5],
		Label:       NormalizeLabel(label),
	}, true
}

// NormalizeSoilType maps a raw soil label onto the encoder labels. Anything
// unrecognised becomes Unknown.
func NormalizeSoilType(raw string) string {
	if label, ok := soilAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return label
	}
	return domain.SoilUnknown
}

// NormalizeLabel upper-cases the first letter of a crop label, so "rice" and
// "Rice" count as one class.
func NormalizeLabel(raw string) string {
	raw = strings.TrimSpace(raw)
	r, size := utf8.DecodeRuneInString(raw)
	if r == utf8.RuneError {
		return raw
	}
	return string(unicode.ToUpper(r)) + raw[size:]
}

// Matrix returns the rows in classifier feature order and their labels.
func (d *Dataset) Matrix() ([][]float64, []string) {
	X := make([][]float64, len(d.Records))
	labels := make([]string, len(d.Records))
	for i, r := range d.Records {
		soil := domain.SoilProfile{PH: r.PH, Nitrogen: r.N, Phosphorus: r.P, Potassium: r.K}
		climate := domain.ClimateProfile{Temperature: r.Temperature, Humidity: r.Humidity}
		X[i] = domain.BuildFeatures(r.SoilType, soil, climate)
		labels[i] = r.Label
	}
	return X, labels
}

// ClassCounts returns how many records carry each label.
func (d *Dataset) ClassCounts() map[string]int {
	counts := map[string]int{}
	for _, r := range d.Records {
		counts[r.Label]++
	}
	return counts
}
