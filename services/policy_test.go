package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/testutil"
)

func TestPolicy(t *testing.T) {
	admin := models.Identity{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	assignee := models.Identity{ID: primitive.NewObjectID(), Role: models.RoleMember}
	stranger := models.Identity{ID: primitive.NewObjectID(), Role: models.RoleMember}
	task := testutil.NewTask("t", models.StatusPending, assignee.ID)

	tests := []struct {
		name     string
		actor    models.Identity
		view     bool
		manage   bool
		progress bool
	}{
		{"admin", admin, true, true, true},
		{"assignee", assignee, true, false, true},
		{"stranger", stranger, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.view, CanViewTask(tt.actor, &task))
			assert.Equal(t, tt.manage, CanManageTasks(tt.actor))
			assert.Equal(t, tt.progress, CanUpdateProgress(tt.actor, &task))
		})
	}
}
