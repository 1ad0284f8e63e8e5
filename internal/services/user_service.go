package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/database"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/events"
	"wykonczymy/internal/logger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/pagination"
)

const minPasswordLength = 8

// LoginPolicy controls the lockout after repeated failed logins.
type LoginPolicy struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// DefaultLoginPolicy locks an account for 15 minutes after 5 failures.
var DefaultLoginPolicy = LoginPolicy{MaxFailedAttempts: 5, LockoutDuration: 15 * time.Minute}

// userService handles user-related business logic.
type userService struct {
	db        *gorm.DB
	publisher events.Publisher
	policy    LoginPolicy
	now       func() time.Time
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, publisher events.Publisher, policy LoginPolicy) UserServicer {
	return &userService{db: db, publisher: publisher, policy: policy, now: time.Now}
}

// CreateUser creates a user on behalf of actor. Actors that may not assign
// roles always produce employees, whatever role was requested.
func (s *userService) CreateUser(ctx context.Context, actor authz.Actor, input CreateUserInput) (*models.User, error) {
	if !authz.CanManageUsers(actor) {
		return nil, apperrors.ErrForbidden
	}
	input.Role = authz.EffectiveRoleOnCreate(actor, input.Role)
	return s.create(ctx, input)
}

// BootstrapAdmin creates the first ADMIN. It refuses once any admin exists.
func (s *userService) BootstrapAdmin(ctx context.Context, input CreateUserInput) (*models.User, error) {
	var admins int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", authz.RoleAdmin).Count(&admins).Error; err != nil {
		return nil, database.Translate(err)
	}
	if admins > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "an administrator already exists")
	}
	input.Role = authz.RoleAdmin
	return s.create(ctx, input)
}

func (s *userService) create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "password must be at least 8 characters")
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, database.Translate(err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      input.Role,
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindUser, user.ID, events.ActionCreated))
	return user, nil
}

// GetUserByID returns a user visible to actor.
func (s *userService) GetUserByID(ctx context.Context, actor authz.Actor, id string) (*models.User, error) {
	var user models.User
	q := scoped(s.db.WithContext(ctx), authz.UserScope(actor))
	if err := q.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrUserNotFound)
	}
	return &user, nil
}

// GetActiveUser loads a user for session handling, without scoping.
func (s *userService) GetActiveUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrUserNotFound)
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive
	}
	return &user, nil
}

// ListUsers returns the users visible to actor.
func (s *userService) ListUsers(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter UserFilter) (*pagination.PageResponse[models.User], error) {
	page.Defaults()

	base := scoped(s.db.WithContext(ctx).Model(&models.User{}), authz.UserScope(actor))
	if filter.Role != nil {
		base = base.Where("role = ?", *filter.Role)
	}
	if filter.IsActive != nil {
		base = base.Where("is_active = ?", *filter.IsActive)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		base = base.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, database.Translate(err)
	}

	var users []models.User
	if err := base.Scopes(
		pagination.Paginate(page),
		pagination.Sort(page.Sort, map[string]string{"email": "email", "last_name": "last_name", "created_at": "created_at"}, "last_name ASC, first_name ASC"),
	).Find(&users).Error; err != nil {
		return nil, database.Translate(err)
	}

	result := pagination.NewPageResponse(users, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateUser applies a partial update. Anyone may edit their own profile;
// editing someone else needs ADMIN/OWNER, or MANAGER editing an employee.
// A role change needs ADMIN/OWNER regardless of whose account it is.
func (s *userService) UpdateUser(ctx context.Context, actor authz.Actor, id string, fields UserUpdateFields) (*models.User, error) {
	user, err := s.GetUserByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	self := user.ID == actor.ID
	if !self && !authz.IsAdminOrOwner(actor) && !(authz.IsAdminOrOwnerOrManager(actor) && user.Role == authz.RoleEmployee) {
		return nil, apperrors.ErrForbidden
	}

	updates := map[string]any{}
	if fields.Role != nil && *fields.Role != user.Role {
		if !authz.CanWriteRole(actor) {
			return nil, apperrors.ErrForbidden
		}
		if !fields.Role.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown role")
		}
		updates["role"] = *fields.Role
	}
	if fields.FirstName != nil {
		updates["first_name"] = *fields.FirstName
	}
	if fields.LastName != nil {
		updates["last_name"] = *fields.LastName
	}
	if fields.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*fields.Email))
		if email == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email must not be empty")
		}
		if email != user.Email {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
				return nil, database.Translate(err)
			}
			if count > 0 {
				return nil, apperrors.ErrDuplicateEmail
			}
			updates["email"] = email
		}
	}
	if fields.Password != nil {
		if len(*fields.Password) < minPasswordLength {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*fields.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updates["password"] = string(hash)
		updates["refresh_token_hash"] = ""
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindUser, user.ID, events.ActionUpdated))
	return s.GetUserByID(ctx, actor, id)
}

// DeactivateUser disables sign-in for a user and revokes their refresh token.
func (s *userService) DeactivateUser(ctx context.Context, actor authz.Actor, id string) error {
	if !authz.CanDeactivateUser(actor) {
		return apperrors.ErrForbidden
	}
	if id == actor.ID {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "you cannot deactivate your own account")
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "refresh_token_hash": ""})
	if res.Error != nil {
		return database.Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindUser, id, events.ActionUpdated))
	return nil
}

// AttemptLogin verifies credentials and maintains the failed-attempt counter.
func (s *userService) AttemptLogin(ctx context.Context, email, password string) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, database.Translate(err)
	}

	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, apperrors.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		updates := map[string]any{"failed_login_attempts": gorm.Expr("failed_login_attempts + 1")}
		if user.FailedLoginAttempts+1 >= s.policy.MaxFailedAttempts {
			lockedUntil := now.Add(s.policy.LockoutDuration)
			updates["locked_until"] = lockedUntil
			updates["failed_login_attempts"] = 0
			logger.Get().Warnw("account locked after repeated failed logins", "user_id", user.ID)
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, database.Translate(err)
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := db.Model(&user).Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, database.Translate(err)
	}
	user.LastLoginAt = &now
	return &user, nil
}

// StoreRefreshTokenHash stores the SHA-256 hash of the current refresh token.
func (s *userService) StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("refresh_token_hash", tokenHash)
	if res.Error != nil {
		return database.Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// GetRefreshTokenHash returns the stored refresh-token hash of an active user.
func (s *userService) GetRefreshTokenHash(ctx context.Context, userID string) (string, error) {
	user, err := s.GetActiveUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.RefreshTokenHash, nil
}
