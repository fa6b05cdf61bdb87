package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultModelColumn is assumed when a spreadsheet offers no
// recognizable key column.
const DefaultModelColumn = "Mfr Model"

// DefaultVariationMode disables variant expansion on the backend.
const DefaultVariationMode = "None"

var (
	ErrMissingFile     = errors.New("no input file selected")
	ErrMissingPrefix   = errors.New("no SKU prefix provided")
	ErrInvalidRowRange = errors.New("row range is invalid")
)

// ScrapeParams configures a scrape job submission. FilePath points at
// the local spreadsheet to upload.
type ScrapeParams struct {
	FilePath      string `json:"filePath"`
	ModelColumn   string `json:"modelColumn"`
	Prefix        string `json:"prefix"`
	VariationMode string `json:"variationMode"`
	StartRow      int    `json:"startRow"`
	EndRow        int    `json:"endRow"`
	SaveInterval  int    `json:"saveInterval"`
}

// Normalize fills blank fields with their conventional defaults.
func (p *ScrapeParams) Normalize() {
	p.ModelColumn = strings.TrimSpace(p.ModelColumn)
	if p.ModelColumn == "" {
		p.ModelColumn = DefaultModelColumn
	}
	p.Prefix = strings.TrimSpace(p.Prefix)
	if strings.TrimSpace(p.VariationMode) == "" {
		p.VariationMode = DefaultVariationMode
	}
	if p.StartRow == 0 {
		p.StartRow = 1
	}
	if p.SaveInterval == 0 {
		p.SaveInterval = 5
	}
}

// Validate reports the first constraint the parameters break.
func (p ScrapeParams) Validate() error {
	if strings.TrimSpace(p.FilePath) == "" {
		return ErrMissingFile
	}
	if p.Prefix == "" {
		return ErrMissingPrefix
	}
	if p.StartRow < 1 {
		return fmt.Errorf("%w: start row %d is below 1", ErrInvalidRowRange, p.StartRow)
	}
	if p.EndRow < p.StartRow {
		return fmt.Errorf("%w: end row %d is before start row %d", ErrInvalidRowRange, p.EndRow, p.StartRow)
	}
	if p.SaveInterval < 1 {
		return fmt.Errorf("save interval %d is below 1", p.SaveInterval)
	}
	return nil
}

// TagsMode selects which tag pipeline a tags job runs.
type TagsMode string

const (
	TagsModeProcess TagsMode = "process"
	TagsModePush    TagsMode = "push"
)

// TagsParams configures a tag job. Process mode merges an Excel master
// against a CSV export; push mode uploads a previously produced file.
type TagsParams struct {
	Mode       TagsMode `json:"mode"`
	ExcelPath  string   `json:"excelPath"`
	CSVPath    string   `json:"csvPath"`
	OutputName string   `json:"outputName"`
}

func (p *TagsParams) Normalize() {
	if p.Mode == "" {
		p.Mode = TagsModeProcess
	}
	if strings.TrimSpace(p.OutputName) == "" {
		p.OutputName = "tags_output.csv"
	}
}

func (p TagsParams) Validate() error {
	switch p.Mode {
	case TagsModeProcess:
		if strings.TrimSpace(p.ExcelPath) == "" || strings.TrimSpace(p.CSVPath) == "" {
			return fmt.Errorf("%w: tag processing needs both an Excel and a CSV file", ErrMissingFile)
		}
	case TagsModePush:
		if strings.TrimSpace(p.CSVPath) == "" {
			return fmt.Errorf("%w: tag push needs a processed CSV file", ErrMissingFile)
		}
	default:
		return fmt.Errorf("unknown tags mode %q", p.Mode)
	}
	return nil
}

// WeightParams configures a weight/dimension sync job. Both files are
// uploaded; the backend writes merged output into the second one.
type WeightParams struct {
	VendorPath string `json:"vendorPath"`
	OutputPath string `json:"outputPath"`
}

func (p WeightParams) Validate() error {
	if strings.TrimSpace(p.VendorPath) == "" || strings.TrimSpace(p.OutputPath) == "" {
		return fmt.Errorf("%w: weight sync needs a vendor file and an output file", ErrMissingFile)
	}
	return nil
}

// FreightParams configures a freight-API sync job.
type FreightParams struct {
	LookupPath string `json:"lookupPath"`
	WeightPath string `json:"weightPath"`
}

func (p FreightParams) Validate() error {
	if strings.TrimSpace(p.LookupPath) == "" || strings.TrimSpace(p.WeightPath) == "" {
		return fmt.Errorf("%w: freight sync needs a lookup file and a weight file", ErrMissingFile)
	}
	return nil
}
