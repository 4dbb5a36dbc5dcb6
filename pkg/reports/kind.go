// Package reports builds report tables from project, task and user records.
package reports

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethpandaops/tally/pkg/store"
	"github.com/ethpandaops/tally/pkg/table"
)

// ErrUnknownKind is returned for report kinds other than projects and tasks
var ErrUnknownKind = errors.New("unknown report kind")

// Kind identifies a report
type Kind string

const (
	// KindProjects lists projects with their curator and manager
	KindProjects Kind = "projects"
	// KindTasks lists tasks with their executor and project
	KindTasks Kind = "tasks"
)

// Kinds returns every report kind
func Kinds() []Kind {
	return []Kind{KindProjects, KindTasks}
}

// ParseKind converts a string such as "tasks" into a Kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindProjects, KindTasks:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q, must be one of: projects, tasks", ErrUnknownKind, s)
	}
}

// String implements fmt.Stringer
func (k Kind) String() string {
	return string(k)
}

// Fields returns the field schema of the report kind
func (k Kind) Fields() []table.Field {
	switch k {
	case KindProjects:
		return ProjectFields()
	case KindTasks:
		return TaskFields()
	default:
		return nil
	}
}

// Build creates the report table of kind from a data snapshot
func Build(kind Kind, snapshot *store.Snapshot, opts ...table.Option) (*table.Table, error) {
	switch kind {
	case KindProjects:
		return NewProjectsTable(snapshot.Projects, snapshot.Users, opts...)
	case KindTasks:
		return NewTasksTable(snapshot.Tasks, snapshot.Users, snapshot.Projects, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// userNames indexes display names by user id
func userNames(users []store.User) map[store.ID]string {
	names := make(map[store.ID]string, len(users))
	for _, u := range users {
		if _, ok := names[u.ID]; !ok {
			names[u.ID] = u.DisplayName()
		}
	}

	return names
}
