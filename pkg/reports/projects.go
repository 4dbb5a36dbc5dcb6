package reports

import (
	"github.com/ethpandaops/tally/pkg/store"
	"github.com/ethpandaops/tally/pkg/table"
)

// Project report field names
const (
	ProjectFieldStartDate   = "start_date"
	ProjectFieldEndDate     = "end_date"
	ProjectFieldName        = "project_name"
	ProjectFieldStatus      = "status"
	ProjectFieldCuratorName = "curator_name"
	ProjectFieldManagerName = "manager_name"
)

// ProjectFields returns the columns of the projects report
func ProjectFields() []table.Field {
	return []table.Field{
		{Name: ProjectFieldStartDate, Label: "Дата начала", Type: table.FieldDate},
		{Name: ProjectFieldEndDate, Label: "Дата окончания", Type: table.FieldDate},
		{Name: ProjectFieldName, Label: "Название проекта", Type: table.FieldText},
		{Name: ProjectFieldStatus, Label: "Статус", Type: table.FieldText},
		{Name: ProjectFieldCuratorName, Label: "Куратор проекта", Type: table.FieldText},
		{Name: ProjectFieldManagerName, Label: "Руководитель проекта", Type: table.FieldText},
	}
}

// ProjectRow is one line of the projects report
type ProjectRow struct {
	StartDate   string
	EndDate     string
	ProjectName string
	Status      string
	CuratorName string
	ManagerName string
}

// Value implements table.Row
func (r *ProjectRow) Value(field string) string {
	switch field {
	case ProjectFieldStartDate:
		return r.StartDate
	case ProjectFieldEndDate:
		return r.EndDate
	case ProjectFieldName:
		return r.ProjectName
	case ProjectFieldStatus:
		return r.Status
	case ProjectFieldCuratorName:
		return r.CuratorName
	case ProjectFieldManagerName:
		return r.ManagerName
	default:
		return ""
	}
}

// NewProjectRows joins projects with user names.
//
// The curator column holds the user referenced by manager_id and the manager
// column the user referenced by supervisor_id. Unknown users yield empty names.
func NewProjectRows(projects []store.Project, users []store.User) []table.Row {
	names := userNames(users)
	rows := make([]table.Row, 0, len(projects))

	for _, p := range projects {
		rows = append(rows, &ProjectRow{
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
			ProjectName: p.Name,
			Status:      p.Status,
			CuratorName: names[p.ManagerID],
			ManagerName: names[p.SupervisorID],
		})
	}

	return rows
}

// NewProjectsTable builds the projects report table
func NewProjectsTable(projects []store.Project, users []store.User, opts ...table.Option) (*table.Table, error) {
	return table.New(NewProjectRows(projects, users), ProjectFields(), opts...)
}
