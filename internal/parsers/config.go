package parsers

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Encodings accepted for delimited text files
const (
	EncodingAuto        = "auto"
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

// LoaderConfig controls how sheets are read into rows
type LoaderConfig struct {
	// Delimiter for CSV files; 0 sniffs ',' ';' or tab from the header line
	Delimiter rune `json:"delimiter"`
	// Encoding for CSV files; auto falls back to Windows-1252 on invalid UTF-8
	Encoding string `json:"encoding"`
	// Sheet for XLSX files; empty means the first sheet
	Sheet string `json:"sheet,omitempty"`
	// Location turns spreadsheet date serials into instants
	Location *time.Location `json:"-"`
	// MaxFileSizeMB rejects larger files; 0 disables the check
	MaxFileSizeMB int `json:"max_file_size_mb"`
}

// DefaultLoaderConfig returns a configuration with sensible defaults
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		Encoding:      EncodingAuto,
		Location:      time.Local,
		MaxFileSizeMB: 200,
	}
}

// Validate checks if the loader configuration is valid
func (c *LoaderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Delimiter, validation.In(rune(0), ',', ';', '\t', '|')),
		validation.Field(&c.Encoding, validation.Required, validation.In(EncodingAuto, EncodingUTF8, EncodingWindows1252)),
		validation.Field(&c.MaxFileSizeMB, validation.Min(0)),
	)
}
