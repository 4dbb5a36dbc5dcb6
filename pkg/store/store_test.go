package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usersJSON = `[
  {"id": "u1", "name": "Иванов И.И.", "role": "manager"},
  {"id": 2, "full_name": "Петров П.П.", "role": "worker"}
]`
	projectsJSON = `[
  {"id": "p1", "name": "Портал", "status": "в работе", "start_date": "01.01.2024",
   "end_date": "31.12.2024", "manager_id": "u1", "supervisor_id": 2, "team": ["u1", 2]}
]`
	tasksJSON = `[
  {"id": "t1", "title": "Макет", "project_id": "p1", "assignee_id": 2, "status": "завершена",
   "start_date": "10.01.2024", "deadline": "01.02.2024", "completion_date": "25.01.2024"}
]`
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func newTestConfig(t *testing.T, dir string) *Config {
	t.Helper()

	cfg := &Config{}
	require.NoError(t, defaults.Set(cfg))
	cfg.DataDir = dir

	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing data dir",
			cfg:     Config{UsersFile: "u", ProjectsFile: "p", TasksFile: "t"},
			wantErr: ErrDataDirRequired,
		},
		{
			name:    "blank file name",
			cfg:     Config{DataDir: "data", UsersFile: "u", ProjectsFile: "", TasksFile: "t"},
			wantErr: ErrFileNameRequired,
		},
		{
			name: "valid",
			cfg:  Config{DataDir: "data", UsersFile: "u", ProjectsFile: "p", TasksFile: "t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := newTestConfig(t, "/srv/data")

	assert.Equal(t, "/srv/data/users.json", cfg.UsersPath())
	assert.Equal(t, "/srv/data/projects.json", cfg.ProjectsPath())
	assert.Equal(t, "/srv/data/tasks.json", cfg.TasksPath())
	assert.False(t, cfg.Watch)
}

func TestStore_Snapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", usersJSON)
	writeFile(t, dir, "projects.json", projectsJSON)
	writeFile(t, dir, "tasks.json", tasksJSON)

	s := New(logrus.New(), newTestConfig(t, dir))

	snapshot, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.Users, 2)
	assert.Equal(t, ID("u1"), snapshot.Users[0].ID)
	assert.Equal(t, ID("2"), snapshot.Users[1].ID)
	assert.Equal(t, "Петров П.П.", snapshot.Users[1].DisplayName())

	require.Len(t, snapshot.Projects, 1)
	assert.Equal(t, ID("2"), snapshot.Projects[0].SupervisorID)
	assert.Equal(t, []ID{"u1", "2"}, snapshot.Projects[0].Team)

	require.Len(t, snapshot.Tasks, 1)
	assert.Equal(t, "25.01.2024", snapshot.Tasks[0].CompletionDate)
	assert.Equal(t, ID("2"), snapshot.Tasks[0].AssigneeID)
}

func TestStore_SnapshotMissingAndBlankFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", "  \n")

	s := New(logrus.New(), newTestConfig(t, dir))

	snapshot, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, snapshot.Users)
	assert.Empty(t, snapshot.Users)
	assert.NotNil(t, snapshot.Projects)
	assert.Empty(t, snapshot.Projects)
	assert.Empty(t, snapshot.Tasks)
}

func TestStore_SnapshotMalformedFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "broken json", file: "tasks.json", content: `[{"id": "t1",`},
		{name: "object instead of array", file: "projects.json", content: `{"id": "p1"}`},
		{name: "invalid id", file: "users.json", content: `[{"id": true}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)

			s := New(logrus.New(), newTestConfig(t, dir))

			_, err := s.Snapshot(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.file)
		})
	}
}

func TestStore_SnapshotCanceledContext(t *testing.T) {
	s := New(logrus.New(), newTestConfig(t, t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ReloadsEveryCallWithoutWatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", `[{"id": "u1", "name": "a"}]`)

	s := New(logrus.New(), newTestConfig(t, dir))
	require.NoError(t, s.Start(context.Background()))
	defer func() { require.NoError(t, s.Stop()) }()

	first, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Users, 1)

	writeFile(t, dir, "users.json", `[{"id": "u1", "name": "a"}, {"id": "u2", "name": "b"}]`)

	second, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, second.Users, 2)
}

func TestStore_WatchCachesAndInvalidates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", `[{"id": "u1", "name": "a"}]`)

	cfg := newTestConfig(t, dir)
	cfg.Watch = true

	s := New(logrus.New(), cfg)
	require.NoError(t, s.Start(context.Background()))
	defer func() { require.NoError(t, s.Stop()) }()

	first, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	cached, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, cached)

	writeFile(t, dir, "users.json", `[{"id": "u1", "name": "a"}, {"id": "u2", "name": "b"}]`)

	require.Eventually(t, func() bool {
		snapshot, err := s.Snapshot(context.Background())
		return err == nil && len(snapshot.Users) == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStore_WatchIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", `[{"id": "u1", "name": "a"}]`)

	cfg := newTestConfig(t, dir)
	cfg.Watch = true

	s := New(logrus.New(), cfg)
	require.NoError(t, s.Start(context.Background()))
	defer func() { require.NoError(t, s.Stop()) }()

	first, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	writeFile(t, dir, "notes.txt", "unrelated")
	time.Sleep(100 * time.Millisecond)

	second, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestStore_StartMissingDirectory(t *testing.T) {
	cfg := newTestConfig(t, filepath.Join(t.TempDir(), "absent"))
	cfg.Watch = true

	s := New(logrus.New(), cfg)

	require.Error(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop())
}

func TestStore_StopIsIdempotent(t *testing.T) {
	cfg := newTestConfig(t, t.TempDir())
	cfg.Watch = true

	s := New(logrus.New(), cfg)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr bool
	}{
		{name: "string", input: `"a1"`, want: "a1"},
		{name: "number", input: `42`, want: "42"},
		{name: "null", input: `null`, want: ""},
		{name: "bool", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			err := id.UnmarshalJSON([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Иванов", User{Name: "Иванов", FullName: "Иванов Иван"}.DisplayName())
	assert.Equal(t, "Иванов Иван", User{FullName: "Иванов Иван"}.DisplayName())
	assert.Equal(t, "", User{}.DisplayName())
}
