package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ACondori95/admin-tarea/apperrors"
	"github.com/ACondori95/admin-tarea/logging"
	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/repositories"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgUserExists         = "User already exists"
	msgUserNotFound       = "User not found"
	msgTokenFailed        = "Not authorized, token failed"
)

// TokenIssuer signs and validates session tokens.
type TokenIssuer interface {
	GenerateToken(userID string) (string, error)
	ValidateToken(token string) (string, error)
}

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(hash, password string) bool
}

type UserService struct {
	users            repositories.UserRepository
	tasks            repositories.TaskRepository
	tokens           TokenIssuer
	hasher           PasswordHasher
	adminInviteToken string
	now              func() time.Time
}

// NewUserService wires the account operations. adminInviteToken is the shared
// secret that promotes a registration to administrator; empty disables it.
func NewUserService(
	users repositories.UserRepository,
	tasks repositories.TaskRepository,
	tokens TokenIssuer,
	hasher PasswordHasher,
	adminInviteToken string,
) *UserService {
	return &UserService{
		users:            users,
		tasks:            tasks,
		tokens:           tokens,
		hasher:           hasher,
		adminInviteToken: adminInviteToken,
		now:              time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, apperrors.Validation("Name, email and password are required")
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.Conflict(msgUserExists)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.Internal("failed to check existing user", err)
	}

	role := models.RoleMember
	if s.isAdminInvite(req.AdminInviteToken) {
		role = models.RoleAdmin
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	now := s.now()
	user := &models.User{
		ID:              primitive.NewObjectID(),
		Name:            name,
		Email:           email,
		Password:        hashed,
		ProfileImageURL: req.ProfileImageURL,
		Role:            role,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = s.users.Insert(ctx, user)
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, apperrors.Conflict(msgUserExists)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to save user", err)
	}

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: User %s registered with role '%s'", user.ID.Hex(), role)
	return s.authResponse(user)
}

// isAdminInvite compares in constant time; an unset secret never matches.
func (s *UserService) isAdminInvite(token string) bool {
	if s.adminInviteToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminInviteToken)) == 1
}

// Login fails with the same error for an unknown email and a wrong password.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, repositories.ErrNotFound) {
		logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: Login attempt for unknown email")
		return nil, apperrors.Authentication(msgInvalidCredentials)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load user", err)
	}
	if !s.hasher.Check(user.Password, req.Password) {
		logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: Wrong password for user %s", user.ID.Hex())
		return nil, apperrors.Authentication(msgInvalidCredentials)
	}

	logging.Logger.Infof("Event ID: LOGIN_SUCCESS, Description: User %s logged in", user.ID.Hex())
	return s.authResponse(user)
}

// Authenticate resolves a session token to the identity of a live account.
func (s *UserService) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	userID, err := s.tokens.ValidateToken(token)
	if err != nil {
		return models.Identity{}, apperrors.Authentication(msgTokenFailed)
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return models.Identity{}, apperrors.Authentication(msgTokenFailed)
	}
	user, err := s.users.FindByID(ctx, oid)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Identity{}, apperrors.Authentication(msgTokenFailed)
	}
	if err != nil {
		return models.Identity{}, apperrors.Internal("failed to load session user", err)
	}
	return models.Identity{ID: user.ID, Role: user.Role}, nil
}

func (s *UserService) GetProfile(ctx context.Context, actor models.Identity) (*models.User, error) {
	return s.findUser(ctx, actor.ID)
}

// UpdateProfile merges patch into the caller's account. Empty values leave a field unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, actor models.Identity, patch models.ProfilePatch) (*models.AuthResponse, error) {
	user, err := s.findUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil && strings.TrimSpace(*patch.Email) != "" {
		user.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Password != nil && *patch.Password != "" {
		hashed, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, apperrors.Internal("failed to hash password", err)
		}
		user.Password = hashed
	}
	user.UpdatedAt = s.now()

	err = s.users.Update(ctx, user)
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, apperrors.Conflict(msgUserExists)
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to update user", err)
	}

	logging.Logger.Infof("Event ID: PROFILE_UPDATED, Description: User %s updated their profile", user.ID.Hex())
	return s.authResponse(user)
}

// ListMembers returns every member with live per-status task counts.
func (s *UserService) ListMembers(ctx context.Context, actor models.Identity) ([]models.UserWithTaskCounts, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization(msgAdminsOnly)
	}
	users, err := s.users.Find(ctx, models.RoleMember)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch members", err)
	}

	out := make([]models.UserWithTaskCounts, 0, len(users))
	for _, u := range users {
		id := u.ID
		counts := [3]int64{}
		for i, st := range models.TaskStatuses {
			n, err := s.tasks.Count(ctx, models.TaskFilter{Assignee: &id, Status: st})
			if err != nil {
				return nil, apperrors.Internal("failed to count member tasks", err)
			}
			counts[i] = n
		}
		out = append(out, models.UserWithTaskCounts{
			User:            u,
			PendingTasks:    counts[0],
			InProgressTasks: counts[1],
			CompletedTasks:  counts[2],
		})
	}
	return out, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound(msgUserNotFound)
	}
	return s.findUser(ctx, oid)
}

func (s *UserService) findUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load user", err)
	}
	return user, nil
}

func (s *UserService) authResponse(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, apperrors.Internal("failed to generate token", err)
	}
	return &models.AuthResponse{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Role:            user.Role,
		ProfileImageURL: user.ProfileImageURL,
		Token:           token,
	}, nil
}
