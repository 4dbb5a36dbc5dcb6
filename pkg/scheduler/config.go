// Package scheduler runs report exports on cron schedules
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/tally/pkg/reports"
	"github.com/robfig/cron/v3"
)

var (
	// ErrJobNameRequired is returned when a job has no name
	ErrJobNameRequired = errors.New("job name is required")
	// ErrDuplicateJob is returned when two jobs share a name
	ErrDuplicateJob = errors.New("duplicate job name")
	// ErrScheduleRequired is returned when a job has no schedule
	ErrScheduleRequired = errors.New("job schedule is required")
	// ErrOutputDirRequired is returned when a job has no output directory
	ErrOutputDirRequired = errors.New("job output directory is required")
	// ErrInvalidTickInterval is returned when the tick interval is not positive
	ErrInvalidTickInterval = errors.New("tick interval must be positive")
)

// DefaultUserID identifies scheduled exports in file names and history
const DefaultUserID = "scheduler"

//nolint:gochecknoglobals // Shared cron parser
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a five field cron expression or a descriptor such as
// "@daily" or "@every 1h"
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule format: %w", err)
	}

	return sched, nil
}

// Config defines scheduler configuration
type Config struct {
	Enabled         bool          `yaml:"enabled" default:"false"`
	TickInterval    time.Duration `yaml:"tickInterval" default:"1s"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
	Jobs            []JobConfig   `yaml:"jobs"`
}

// JobConfig describes one scheduled export. The filter parameters follow the
// report query parameters.
type JobConfig struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"`
	Schedule  string `yaml:"schedule"`
	Search    string `yaml:"search"`
	DateField string `yaml:"dateField"`
	Date      string `yaml:"date"`
	StartDate string `yaml:"startDate"`
	EndDate   string `yaml:"endDate"`
	OutputDir string `yaml:"outputDir"`
	// UserID is used in the file name and the export history, DefaultUserID when empty
	UserID string `yaml:"userID"`
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}

	seen := make(map[string]struct{}, len(c.Jobs))

	for i := range c.Jobs {
		job := &c.Jobs[i]

		if err := job.Validate(); err != nil {
			return fmt.Errorf("job %d: %w", i, err)
		}

		if _, ok := seen[job.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateJob, job.Name)
		}

		seen[job.Name] = struct{}{}
	}

	return nil
}

// Validate checks if the job configuration is valid
func (j *JobConfig) Validate() error {
	if j.Name == "" {
		return ErrJobNameRequired
	}

	if _, err := reports.ParseKind(j.Kind); err != nil {
		return fmt.Errorf("job %q: %w", j.Name, err)
	}

	if j.Schedule == "" {
		return fmt.Errorf("job %q: %w", j.Name, ErrScheduleRequired)
	}

	if _, err := ParseSchedule(j.Schedule); err != nil {
		return fmt.Errorf("job %q: %w", j.Name, err)
	}

	if j.OutputDir == "" {
		return fmt.Errorf("job %q: %w", j.Name, ErrOutputDirRequired)
	}

	return nil
}

// Param returns the report query parameter of the job, see table.ParseQuery
func (j *JobConfig) Param(key string) string {
	switch key {
	case "search":
		return j.Search
	case "date_field":
		return j.DateField
	case "date":
		return j.Date
	case "start_date":
		return j.StartDate
	case "end_date":
		return j.EndDate
	default:
		return ""
	}
}
