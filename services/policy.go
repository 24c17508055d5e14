package services

import "github.com/ACondori95/admin-tarea/models"

// CanViewTask allows administrators and the task's assignees.
func CanViewTask(actor models.Identity, task *models.Task) bool {
	return actor.IsAdmin() || task.IsAssigned(actor.ID)
}

// CanManageTasks gates creating, deleting, editing and reassigning tasks.
func CanManageTasks(actor models.Identity) bool {
	return actor.IsAdmin()
}

// CanUpdateProgress gates status and checklist updates.
func CanUpdateProgress(actor models.Identity, task *models.Task) bool {
	return actor.IsAdmin() || task.IsAssigned(actor.ID)
}
