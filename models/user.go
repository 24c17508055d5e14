package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name            string             `bson:"name" json:"name"`
	Email           string             `bson:"email" json:"email"`
	Password        string             `bson:"password" json:"-"`
	ProfileImageURL *string            `bson:"profileImageUrl" json:"profileImageUrl"`
	Role            Role               `bson:"role" json:"role"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Identity is the authenticated caller every protected operation runs as.
type Identity struct {
	ID   primitive.ObjectID
	Role Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// UserSummary is the display data joined onto tasks in place of assignee ids.
type UserSummary struct {
	ID              primitive.ObjectID `json:"_id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	ProfileImageURL *string            `json:"profileImageUrl"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		ProfileImageURL: u.ProfileImageURL,
	}
}

// UserWithTaskCounts is a member as listed to administrators.
type UserWithTaskCounts struct {
	User
	PendingTasks    int64 `json:"pendingTasks"`
	InProgressTasks int64 `json:"inProgressTasks"`
	CompletedTasks  int64 `json:"completedTasks"`
}

// ProfilePatch carries self-service profile changes; nil fields are left untouched.
type ProfilePatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type RegisterRequest struct {
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Password         string  `json:"password"`
	ProfileImageURL  *string `json:"profileImageUrl"`
	AdminInviteToken string  `json:"adminInviteToken"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register, login and profile update.
type AuthResponse struct {
	ID              primitive.ObjectID `json:"_id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	Role            Role               `json:"role"`
	ProfileImageURL *string            `json:"profileImageUrl"`
	Token           string             `json:"token"`
}
