package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ACondori95/admin-tarea/apperrors"
	"github.com/ACondori95/admin-tarea/models"
)

const (
	maxBodyBytes        = 1 << 20
	msgInvalidBody      = "Invalid request body"
	msgAssigneesInvalid = "assignedTo must be an array of user IDs"
	msgInvalidDueDate   = "Invalid due date"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation(msgInvalidBody)
	}
	return nil
}

// dueDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
type dueDate struct {
	time.Time
}

func (d *dueDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperrors.Validation(msgInvalidDueDate)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return apperrors.Validation(msgInvalidDueDate)
}

func (d *dueDate) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// taskRequest is the body of task create and update. assignedTo stays raw so
// a non-array value is reported as a validation error rather than bad JSON.
type taskRequest struct {
	Title         *string                 `json:"title"`
	Description   *string                 `json:"description"`
	Priority      *models.TaskPriority    `json:"priority"`
	DueDate       *dueDate                `json:"dueDate"`
	AssignedTo    json.RawMessage         `json:"assignedTo"`
	TodoChecklist *[]models.ChecklistItem `json:"todoChecklist"`
	Attachments   *[]string               `json:"attachments"`
}

func decodeTaskRequest(w http.ResponseWriter, r *http.Request) (*taskRequest, error) {
	var req taskRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if apperrors.Is(err, apperrors.KindValidation) {
			return nil, err
		}
		return nil, apperrors.Validation(msgInvalidBody)
	}
	return &req, nil
}

// assignees returns nil when assignedTo is absent or null.
func (req *taskRequest) assignees() ([]string, error) {
	raw := bytes.TrimSpace(req.AssignedTo)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		return nil, apperrors.Validation(msgAssigneesInvalid)
	}
	ids := []string{}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, apperrors.Validation(msgAssigneesInvalid)
	}
	return ids, nil
}

func (req *taskRequest) input() (models.TaskInput, error) {
	assignedTo, err := req.assignees()
	if err != nil {
		return models.TaskInput{}, err
	}
	in := models.TaskInput{AssignedTo: assignedTo, DueDate: req.DueDate.ptr()}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Priority != nil {
		in.Priority = *req.Priority
	}
	if req.TodoChecklist != nil {
		in.TodoChecklist = *req.TodoChecklist
	}
	if req.Attachments != nil {
		in.Attachments = *req.Attachments
	}
	return in, nil
}

func (req *taskRequest) patch() (models.TaskPatch, error) {
	assignedTo, err := req.assignees()
	if err != nil {
		return models.TaskPatch{}, err
	}
	p := models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate.ptr(),
		AssignedTo:  assignedTo,
	}
	if req.TodoChecklist != nil {
		p.TodoChecklist = *req.TodoChecklist
		if p.TodoChecklist == nil {
			p.TodoChecklist = []models.ChecklistItem{}
		}
	}
	if req.Attachments != nil {
		p.Attachments = *req.Attachments
		if p.Attachments == nil {
			p.Attachments = []string{}
		}
	}
	return p, nil
}

type statusRequest struct {
	Status models.TaskStatus `json:"status"`
}

type checklistRequest struct {
	TodoChecklist []models.ChecklistItem `json:"todoChecklist"`
}
