package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StatusTaskCompleted is the task status of finished work
const StatusTaskCompleted = "завершена"

// ID is a record identifier. The data files hold string identifiers, but
// older files carry plain numbers, so both decode into the same value.
type ID string

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*id = ID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}

	*id = ID(n.String())

	return nil
}

// User is an account of the tracking application
type User struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// DisplayName returns the name shown in reports
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}

	return u.FullName
}

// Project is a tracked project. Dates are DD.MM.YYYY strings.
type Project struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	SupervisorID ID     `json:"supervisor_id"`
	ManagerID    ID     `json:"manager_id"`
	Direction    string `json:"direction,omitempty"`
	Team         []ID   `json:"team,omitempty"`
}

// Task is a unit of work within a project. Dates are DD.MM.YYYY strings.
type Task struct {
	ID             ID     `json:"id"`
	Title          string `json:"title"`
	ProjectID      ID     `json:"project_id"`
	AssigneeID     ID     `json:"assignee_id"`
	Status         string `json:"status"`
	StartDate      string `json:"start_date"`
	Deadline       string `json:"deadline"`
	CompletionDate string `json:"completion_date,omitempty"`
}

// Snapshot is one consistent read of all data files
type Snapshot struct {
	Users    []User
	Projects []Project
	Tasks    []Task
}
