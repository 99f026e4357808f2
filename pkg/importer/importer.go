// Package importer parses scanned-lead export files (.xlsx, .csv) into upsert
// rows, guessing which column maps to which contact field from the header.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/xuri/excelize/v2"

	"github.com/Ramsey-B/clover/pkg/models"
)

// columnAliases maps normalized header cells to canonical field names. Export
// files from scanner apps rarely agree on spelling.
var columnAliases = map[string]string{
	"scan datetime":    "scan_datetime",
	"scan date":        "scan_datetime",
	"scanned at":       "scan_datetime",
	"first name":       "first_name",
	"firstname":        "first_name",
	"given name":       "first_name",
	"last name":        "last_name",
	"lastname":         "last_name",
	"surname":          "last_name",
	"family name":      "last_name",
	"job title":        "job_title",
	"title":            "job_title",
	"position":         "job_title",
	"role":             "job_title",
	"company":          "company",
	"company name":     "company",
	"organisation":     "company",
	"organization":     "company",
	"employer":         "company",
	"street":           "street",
	"address":          "street",
	"street 2":         "street2",
	"street2":          "street2",
	"address 2":        "street2",
	"zip":              "zip_code",
	"zip code":         "zip_code",
	"postal code":      "zip_code",
	"postcode":         "zip_code",
	"city":             "city",
	"town":             "city",
	"state":            "state",
	"province":         "state",
	"region":           "state",
	"country":          "country",
	"phone":            "phone",
	"phone number":     "phone",
	"telephone":        "phone",
	"mobile":           "phone",
	"email":            "email",
	"e mail":           "email",
	"email address":    "email",
	"mail":             "email",
	"website":          "website",
	"web":              "website",
	"url":              "website",
	"category":         "category",
	"status":           "status",
	"pipeline status":  "status",
	"owner":            "owner",
	"account owner":    "owner",
	"last touch":       "last_touch",
	"last contact":     "last_touch",
	"gender":           "gender",
	"application":      "application",
	"use case":         "application",
	"product interest": "product_interest",
	"product":          "product_interest",
	"photo":            "photo",
	"picture":          "photo",
	"profile url":      "profile_url",
	"profile":          "profile_url",
	"linkedin":         "profile_url",
	"linkedin url":     "profile_url",
	"notes":            "note",
	"note":             "note",
	"comment":          "note",
	"comments":         "note",
	"remarks":          "note",
}

// Parser converts export files into upsert rows
type Parser struct {
	logger ectologger.Logger
}

// NewParser creates a new file parser
func NewParser(logger ectologger.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse dispatches on the file extension
func (p *Parser) Parse(filename string, r io.Reader) ([]models.UpsertContactRequest, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return p.ParseXLSX(r)
	case ".csv", ".txt":
		return p.ParseCSV(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .xlsx or .csv", filepath.Ext(filename))
	}
}

// ParseCSV reads a comma-separated export. The first row is the header.
func (p *Parser) ParseCSV(r io.Reader) ([]models.UpsertContactRequest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return p.rowsFromRecords(records)
}

// ParseXLSX reads the first sheet of an Excel export. The first row is the header.
func (p *Parser) ParseXLSX(r io.Reader) ([]models.UpsertContactRequest, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file has no sheets")
	}

	records, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx rows: %w", err)
	}
	return p.rowsFromRecords(records)
}

func (p *Parser) rowsFromRecords(records [][]string) ([]models.UpsertContactRequest, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	columns := GuessColumns(records[0])
	if len(columns) == 0 {
		return nil, fmt.Errorf("no recognizable columns in header")
	}

	var rows []models.UpsertContactRequest
	skipped := 0
	for _, record := range records[1:] {
		row := models.UpsertContactRequest{}
		empty := true
		for i, cell := range record {
			field, ok := columns[i]
			if !ok {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			setField(&row, field, cell)
			empty = false
		}
		if empty {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	if skipped > 0 {
		p.logger.WithFields(map[string]any{"skipped": skipped}).Debug("Skipped empty rows")
	}
	return rows, nil
}

// GuessColumns maps header cell positions to canonical field names
func GuessColumns(header []string) map[int]string {
	columns := make(map[int]string)
	for i, cell := range header {
		normalized := normalizeHeader(cell)
		if field, ok := columnAliases[normalized]; ok {
			columns[i] = field
		}
	}
	return columns
}

func normalizeHeader(cell string) string {
	cell = strings.ToLower(strings.TrimSpace(cell))
	cell = strings.ReplaceAll(cell, "_", " ")
	cell = strings.ReplaceAll(cell, "-", " ")
	return strings.Join(strings.Fields(cell), " ")
}

func setField(row *models.UpsertContactRequest, field, value string) {
	switch field {
	case "scan_datetime":
		row.ScanDatetime = value
	case "first_name":
		row.FirstName = value
	case "last_name":
		row.LastName = value
	case "job_title":
		row.JobTitle = value
	case "company":
		row.Company = value
	case "street":
		row.Street = value
	case "street2":
		row.Street2 = value
	case "zip_code":
		row.ZipCode = value
	case "city":
		row.City = value
	case "state":
		row.State = value
	case "country":
		row.Country = value
	case "phone":
		row.Phone = value
	case "email":
		row.Email = value
	case "website":
		row.Website = value
	case "category":
		row.Category = value
	case "status":
		row.Status = value
	case "owner":
		row.Owner = value
	case "last_touch":
		row.LastTouch = value
	case "gender":
		row.Gender = value
	case "application":
		row.Application = value
	case "product_interest":
		row.ProductInterest = value
	case "photo":
		row.Photo = value
	case "profile_url":
		row.ProfileURL = value
	case "note":
		row.Note = value
	}
}
