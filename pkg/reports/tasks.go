package reports

import (
	"github.com/ethpandaops/tally/pkg/store"
	"github.com/ethpandaops/tally/pkg/table"
)

// Task report field names
const (
	TaskFieldExecutor  = "executor"
	TaskFieldProject   = "project"
	TaskFieldTask      = "task"
	TaskFieldStartDate = "start_date"
	TaskFieldEndDate   = "end_date"
	TaskFieldStatus    = "status"
)

// TaskFields returns the columns of the tasks report
func TaskFields() []table.Field {
	return []table.Field{
		{Name: TaskFieldExecutor, Label: "Исполнитель", Type: table.FieldText},
		{Name: TaskFieldProject, Label: "Проект", Type: table.FieldText},
		{Name: TaskFieldTask, Label: "Задача", Type: table.FieldText},
		{Name: TaskFieldStartDate, Label: "Дата начала задачи", Type: table.FieldDate},
		{Name: TaskFieldEndDate, Label: "Дата окончания задачи", Type: table.FieldDate},
		{Name: TaskFieldStatus, Label: "Статус задачи", Type: table.FieldText},
	}
}

// TaskRow is one line of the tasks report
type TaskRow struct {
	Executor  string
	Project   string
	Task      string
	StartDate string
	EndDate   string
	Status    string
}

// Value implements table.Row
func (r *TaskRow) Value(field string) string {
	switch field {
	case TaskFieldExecutor:
		return r.Executor
	case TaskFieldProject:
		return r.Project
	case TaskFieldTask:
		return r.Task
	case TaskFieldStartDate:
		return r.StartDate
	case TaskFieldEndDate:
		return r.EndDate
	case TaskFieldStatus:
		return r.Status
	default:
		return ""
	}
}

// TaskEndDate returns the completion date of a completed task and the
// deadline otherwise
func TaskEndDate(t store.Task) string {
	if t.Status == store.StatusTaskCompleted && t.CompletionDate != "" {
		return t.CompletionDate
	}

	return t.Deadline
}

// NewTaskRows joins tasks with executor and project names. Unknown users and
// projects yield empty names.
func NewTaskRows(tasks []store.Task, users []store.User, projects []store.Project) []table.Row {
	names := userNames(users)

	projectNames := make(map[store.ID]string, len(projects))
	for _, p := range projects {
		if _, ok := projectNames[p.ID]; !ok {
			projectNames[p.ID] = p.Name
		}
	}

	rows := make([]table.Row, 0, len(tasks))

	for _, t := range tasks {
		rows = append(rows, &TaskRow{
			Executor:  names[t.AssigneeID],
			Project:   projectNames[t.ProjectID],
			Task:      t.Title,
			StartDate: t.StartDate,
			EndDate:   TaskEndDate(t),
			Status:    t.Status,
		})
	}

	return rows
}

// NewTasksTable builds the tasks report table
func NewTasksTable(tasks []store.Task, users []store.User, projects []store.Project, opts ...table.Option) (*table.Table, error) {
	return table.New(NewTaskRows(tasks, users, projects), TaskFields(), opts...)
}
