package repositories

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ACondori95/admin-tarea/models"
)

// taskQuery translates a TaskFilter into a Mongo filter document.
func taskQuery(f models.TaskFilter) bson.M {
	q := bson.M{}
	switch {
	case f.Status != "" && f.NotStatus != "":
		q["status"] = bson.M{"$eq": f.Status, "$ne": f.NotStatus}
	case f.Status != "":
		q["status"] = f.Status
	case f.NotStatus != "":
		q["status"] = bson.M{"$ne": f.NotStatus}
	}
	if f.Assignee != nil {
		// Matches when the id is an element of the assignedTo array.
		q["assignedTo"] = *f.Assignee
	}
	if f.DueBefore != nil {
		q["dueDate"] = bson.M{"$lt": *f.DueBefore}
	}
	return q
}
