package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/xuri/excelize/v2"
)

// Parse turns an uploaded payload into an ordered list of raw records, one
// per data row. The full file is materialized; the caller enforces the
// upload size cap before handing bytes over.
func Parse(data []byte, format models.ImportFormat) ([]models.RawRecord, error) {
	switch format {
	case models.FormatCSV:
		return parseCSV(data)
	case models.FormatSpreadsheet:
		return parseSpreadsheet(data)
	case models.FormatJSON:
		return parseJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, format)
	}
}

// parseCSV reads the first row as field names and every following row as
// one record. Short rows leave trailing fields unset.
func parseCSV(data []byte) ([]models.RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing CSV header: %v", models.ErrMalformedInput, err)
	}

	var records []models.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: CSV row %d: %v", models.ErrMalformedInput, len(records)+2, err)
		}
		record := make(models.RawRecord, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// parseSpreadsheet reads the first sheet of an XLSX workbook using the first
// row as field names. A workbook with zero sheets fails the whole request.
func parseSpreadsheet(data []byte) ([]models.RawRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", models.ErrMalformedInput)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedInput, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	var records []models.RawRecord
	for _, row := range rows[1:] {
		record := make(models.RawRecord, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// parseJSON accepts a top-level array or an object with a "data" array.
// Any other shape is malformed.
func parseJSON(data []byte) ([]models.RawRecord, error) {
	var asArray []models.RawRecord
	if err := json.Unmarshal(data, &asArray); err == nil {
		return asArray, nil
	}

	var asObject struct {
		Data []models.RawRecord `json:"data"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil || asObject.Data == nil {
		return nil, fmt.Errorf("%w: JSON must be an array or an object with a data array", models.ErrMalformedInput)
	}
	return asObject.Data, nil
}
