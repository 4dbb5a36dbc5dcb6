package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/tally/pkg/store"
	"github.com/stretchr/testify/require"
)

// SampleSnapshot returns a small consistent data set. Dates are DD.MM.YYYY.
//
//	projects: "Портал" (01.01.2024 - 31.12.2024), "Склад" (01.03.2024 - 30.06.2024)
//	tasks:    three on "Портал", one on "Склад", one with a dangling project
func SampleSnapshot() *store.Snapshot {
	return &store.Snapshot{
		Users: []store.User{
			{ID: "u1", Name: "Иванов И.И.", Role: "manager"},
			{ID: "u2", Name: "Петров П.П.", Role: "supervisor"},
			{ID: "u3", Name: "Сидорова А.А.", Role: "worker"},
			{ID: "u4", FullName: "Кузнецов К.К.", Role: "worker"},
		},
		Projects: []store.Project{
			{
				ID: "p1", Name: "Портал", Status: "в работе",
				StartDate: "01.01.2024", EndDate: "31.12.2024",
				ManagerID: "u1", SupervisorID: "u2",
			},
			{
				ID: "p2", Name: "Склад", Status: "завершен",
				StartDate: "01.03.2024", EndDate: "30.06.2024",
				ManagerID: "u2", SupervisorID: "missing",
			},
		},
		Tasks: []store.Task{
			{
				ID: "t1", Title: "Макет", ProjectID: "p1", AssigneeID: "u3",
				Status: "завершена", StartDate: "10.01.2024", Deadline: "01.02.2024", CompletionDate: "25.01.2024",
			},
			{
				ID: "t2", Title: "Верстка", ProjectID: "p1", AssigneeID: "u4",
				Status: "в работе", StartDate: "01.02.2024", Deadline: "15.06.2024",
			},
			{
				ID: "t3", Title: "Тесты", ProjectID: "p1", AssigneeID: "u3",
				Status: "завершена", StartDate: "01.06.2024", Deadline: "31.12.2024",
			},
			{
				ID: "t4", Title: "Инвентаризация", ProjectID: "p2", AssigneeID: "u1",
				Status: "новая", StartDate: "01.03.2024", Deadline: "30.06.2024",
			},
			{
				ID: "t5", Title: "Без проекта", ProjectID: "p9", AssigneeID: "u9",
				Status: "новая", StartDate: "", Deadline: "не указан",
			},
		},
	}
}

// WriteDataDir writes the snapshot as users.json, projects.json and
// tasks.json into a temporary directory and returns its path.
func WriteDataDir(t *testing.T, snapshot *store.Snapshot) string {
	t.Helper()

	dir := t.TempDir()

	WriteJSON(t, filepath.Join(dir, "users.json"), snapshot.Users)
	WriteJSON(t, filepath.Join(dir, "projects.json"), snapshot.Projects)
	WriteJSON(t, filepath.Join(dir, "tasks.json"), snapshot.Tasks)

	return dir
}

// WriteJSON encodes v into path
func WriteJSON(t *testing.T, path string, v interface{}) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// StoreConfig returns a store configuration for dir with default file names
func StoreConfig(dir string) *store.Config {
	return &store.Config{
		DataDir:      dir,
		UsersFile:    "users.json",
		ProjectsFile: "projects.json",
		TasksFile:    "tasks.json",
	}
}
