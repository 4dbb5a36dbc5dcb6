package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/Masterminds/sprig/v3"
)

// DefaultFilenameTemplate renders report_{kind}_{user}_{unix timestamp}.xlsx
const DefaultFilenameTemplate = "report_{{ .Kind }}_{{ .UserID }}_{{ .Timestamp }}.xlsx"

// AnonymousUser is used in file names when no user id is known
const AnonymousUser = "anonymous"

var (
	// ErrEmptyFilename is returned when a template renders to an empty name
	ErrEmptyFilename = errors.New("filename template rendered an empty name")
	// ErrInvalidFilename is returned when a rendered name contains a path separator
	ErrInvalidFilename = errors.New("filename must not contain path separators")
)

// Config represents spreadsheet export configuration
type Config struct {
	FilenameTemplate string `yaml:"filenameTemplate" default:"report_{{ .Kind }}_{{ .UserID }}_{{ .Timestamp }}.xlsx"`
	// Numbering adds a leading position column to spreadsheets
	Numbering bool `yaml:"numbering" default:"true"`
}

// Validate validates the export configuration
func (c *Config) Validate() error {
	if _, err := NewFilenameRenderer(c.FilenameTemplate); err != nil {
		return fmt.Errorf("invalid filename template: %w", err)
	}

	return nil
}

// FilenameData is passed to the filename template
type FilenameData struct {
	Kind      string
	UserID    string
	Timestamp int64
	Time      time.Time
}

// FilenameRenderer renders attachment names from a text/template with sprig functions
type FilenameRenderer struct {
	tmpl *template.Template
}

// NewFilenameRenderer parses tmpl. An empty tmpl uses DefaultFilenameTemplate.
func NewFilenameRenderer(tmpl string) (*FilenameRenderer, error) {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultFilenameTemplate
	}

	parsed, err := template.New("filename").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &FilenameRenderer{tmpl: parsed}, nil
}

// Render returns the file name for a report produced for userID at the given time
func (r *FilenameRenderer) Render(kind, userID string, at time.Time) (string, error) {
	var buf bytes.Buffer

	if err := r.tmpl.Execute(&buf, FilenameData{
		Kind:      kind,
		UserID:    SanitizeUserID(userID),
		Timestamp: at.Unix(),
		Time:      at,
	}); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	name := strings.TrimSpace(buf.String())
	if name == "" {
		return "", ErrEmptyFilename
	}

	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	return name, nil
}

// SanitizeUserID keeps letters, digits, '-' and '_' and replaces everything
// else with '_'. A blank id becomes AnonymousUser.
func SanitizeUserID(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return AnonymousUser
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}

		return '_'
	}, userID)
}
