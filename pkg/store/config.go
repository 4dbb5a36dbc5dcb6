// Package store loads the project, task and user records from the JSON files
// maintained by the tracking application.
package store

import (
	"errors"
	"path/filepath"
)

var (
	// ErrDataDirRequired is returned when no data directory is configured
	ErrDataDirRequired = errors.New("data directory is required")
	// ErrFileNameRequired is returned when a data file name is blank
	ErrFileNameRequired = errors.New("data file name is required")
)

// Config represents store configuration
type Config struct {
	DataDir      string `yaml:"dataDir" default:"data"`
	UsersFile    string `yaml:"usersFile" default:"users.json"`
	ProjectsFile string `yaml:"projectsFile" default:"projects.json"`
	TasksFile    string `yaml:"tasksFile" default:"tasks.json"`
	// Watch caches the snapshot and reloads it when the data files change
	Watch bool `yaml:"watch" default:"false"`
}

// Validate validates the store configuration
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirRequired
	}

	if c.UsersFile == "" || c.ProjectsFile == "" || c.TasksFile == "" {
		return ErrFileNameRequired
	}

	return nil
}

// UsersPath returns the full path of the users file
func (c *Config) UsersPath() string {
	return filepath.Join(c.DataDir, c.UsersFile)
}

// ProjectsPath returns the full path of the projects file
func (c *Config) ProjectsPath() string {
	return filepath.Join(c.DataDir, c.ProjectsFile)
}

// TasksPath returns the full path of the tasks file
func (c *Config) TasksPath() string {
	return filepath.Join(c.DataDir, c.TasksFile)
}
