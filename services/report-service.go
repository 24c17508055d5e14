package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ACondori95/admin-tarea/apperrors"
	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/repositories"
)

const (
	SpreadsheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	TasksReportFilename    = "tasks_report.xlsx"
	UsersReportFilename    = "users_report.xlsx"
)

type column struct {
	header string
	width  float64
}

var taskReportColumns = []column{
	{"Task ID", 25},
	{"Title", 30},
	{"Description", 50},
	{"Priority", 15},
	{"Status", 20},
	{"Due Date", 20},
	{"Assigned To", 30},
}

var userReportColumns = []column{
	{"User Name", 30},
	{"Email", 40},
	{"Total Assigned Tasks", 20},
	{"Pending Tasks", 20},
	{"In Progress Tasks", 20},
	{"Completed Tasks", 20},
}

type ReportService struct {
	tasks repositories.TaskRepository
	users repositories.UserRepository
}

func NewReportService(tasks repositories.TaskRepository, users repositories.UserRepository) *ReportService {
	return &ReportService{tasks: tasks, users: users}
}

// ExportTasks writes one row per task with its assignees as "name (email)".
func (s *ReportService) ExportTasks(ctx context.Context, actor models.Identity, w io.Writer) error {
	if !actor.IsAdmin() {
		return apperrors.Authorization(msgAdminsOnly)
	}
	tasks, err := s.tasks.Find(ctx, models.TaskFilter{})
	if err != nil {
		return apperrors.Internal("failed to load tasks for report", err)
	}
	users, err := s.users.Find(ctx, "")
	if err != nil {
		return apperrors.Internal("failed to load users for report", err)
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	rows := make([][]interface{}, 0, len(tasks))
	for _, t := range tasks {
		var names []string
		for _, id := range t.AssignedTo {
			if u, ok := byID[id]; ok {
				names = append(names, fmt.Sprintf("%s (%s)", u.Name, u.Email))
			}
		}
		rows = append(rows, []interface{}{
			t.ID.Hex(),
			t.Title,
			t.Description,
			string(t.Priority),
			string(t.Status),
			t.DueDate.Format("2006-01-02"),
			strings.Join(names, ", "),
		})
	}
	return writeSheet(w, "Tasks Report", taskReportColumns, rows)
}

// ExportUsers writes one row per account with its assigned-task counts.
func (s *ReportService) ExportUsers(ctx context.Context, actor models.Identity, w io.Writer) error {
	if !actor.IsAdmin() {
		return apperrors.Authorization(msgAdminsOnly)
	}
	users, err := s.users.Find(ctx, "")
	if err != nil {
		return apperrors.Internal("failed to load users for report", err)
	}
	tasks, err := s.tasks.Find(ctx, models.TaskFilter{})
	if err != nil {
		return apperrors.Internal("failed to load tasks for report", err)
	}

	type tally struct{ total, pending, inProgress, completed int }
	counts := make(map[primitive.ObjectID]*tally, len(users))
	for _, u := range users {
		counts[u.ID] = &tally{}
	}
	for _, t := range tasks {
		for _, id := range t.AssignedTo {
			c, ok := counts[id]
			if !ok {
				continue
			}
			c.total++
			switch t.Status {
			case models.StatusPending:
				c.pending++
			case models.StatusInProgress:
				c.inProgress++
			case models.StatusCompleted:
				c.completed++
			}
		}
	}

	rows := make([][]interface{}, 0, len(users))
	for _, u := range users {
		c := counts[u.ID]
		rows = append(rows, []interface{}{u.Name, u.Email, c.total, c.pending, c.inProgress, c.completed})
	}
	return writeSheet(w, "User Task Report", userReportColumns, rows)
}

func writeSheet(w io.Writer, sheet string, columns []column, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return apperrors.Internal("failed to name report sheet", err)
	}

	headers := make([]interface{}, len(columns))
	for i, c := range columns {
		headers[i] = c.header
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return apperrors.Internal("failed to resolve report column", err)
		}
		if err := f.SetColWidth(sheet, col, col, c.width); err != nil {
			return apperrors.Internal("failed to size report column", err)
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return apperrors.Internal("failed to write report header", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return apperrors.Internal("failed to create header style", err)
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return apperrors.Internal("failed to resolve header range", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return apperrors.Internal("failed to style report header", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.Internal("failed to resolve report row", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return apperrors.Internal("failed to write report row", err)
		}
	}

	if err := f.Write(w); err != nil {
		return apperrors.Internal("failed to write report", err)
	}
	return nil
}
