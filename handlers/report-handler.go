package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ACondori95/admin-tarea/logging"
	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/services"
	"github.com/ACondori95/admin-tarea/utils"
)

type ReportHandler struct {
	service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) ExportTasks(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, services.TasksReportFilename, h.service.ExportTasks)
}

func (h *ReportHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, services.UsersReportFilename, h.service.ExportUsers)
}

// export buffers the workbook so a failure can still be answered with JSON.
func (h *ReportHandler) export(
	w http.ResponseWriter,
	r *http.Request,
	filename string,
	build func(context.Context, models.Identity, io.Writer) error,
) {
	var buf bytes.Buffer
	if err := build(r.Context(), identity(r), &buf); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", services.SpreadsheetContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Logger.Errorf("Event ID: REPORT_WRITE_FAILED, Description: Failed to send %s: %v", filename, err)
		return
	}
	logging.Logger.Infof("Event ID: REPORT_EXPORTED, Description: Sent %s", filename)
}
