package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ACondori95/admin-tarea/middleware"
	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/services"
	"github.com/ACondori95/admin-tarea/utils"
)

type TaskHandler struct {
	tasks      *services.TaskService
	dashboards *services.DashboardService
}

func NewTaskHandler(tasks *services.TaskService, dashboards *services.DashboardService) *TaskHandler {
	return &TaskHandler{tasks: tasks, dashboards: dashboards}
}

// identity is set by JWTAuthMiddleware on every route that reaches a handler.
func identity(r *http.Request) models.Identity {
	id, _ := middleware.IdentityFromContext(r.Context())
	return id
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	status := models.TaskStatus(r.URL.Query().Get("status"))
	list, err := h.tasks.ListTasks(r.Context(), identity(r), status)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetTask(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTaskRequest(w, r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	input, err := req.input()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), identity(r), input)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Task created successfully",
		"task":    task,
	})
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTaskRequest(w, r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), identity(r), mux.Vars(r)["id"], patch)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Task updated successfully",
		"updatedTask": task,
	})
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.DeleteTask(r.Context(), identity(r), mux.Vars(r)["id"]); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "Task deleted successfully")
}

func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	task, err := h.tasks.UpdateTaskStatus(r.Context(), identity(r), mux.Vars(r)["id"], req.Status)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task status updated",
		"task":    task,
	})
}

func (h *TaskHandler) UpdateTaskChecklist(w http.ResponseWriter, r *http.Request) {
	var req checklistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	task, err := h.tasks.UpdateTaskChecklist(r.Context(), identity(r), mux.Vars(r)["id"], req.TodoChecklist)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task checklist updated",
		"task":    task,
	})
}

func (h *TaskHandler) GetDashboardData(w http.ResponseWriter, r *http.Request) {
	dash, err := h.dashboards.AdminDashboard(r.Context(), identity(r))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, dash)
}

func (h *TaskHandler) GetUserDashboardData(w http.ResponseWriter, r *http.Request) {
	dash, err := h.dashboards.UserDashboard(r.Context(), identity(r))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, dash)
}
