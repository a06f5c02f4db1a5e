package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/maestranza/maestranza-backend/internal/auth/jwt"
	"github.com/maestranza/maestranza-backend/internal/user/domain"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
	"github.com/maestranza/maestranza-backend/pkg/validation"
)

// UserStore is the persistence the user service needs
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, page, perPage int) ([]*domain.User, int64, error)
}

// TokenIssuer signs access tokens
type TokenIssuer interface {
	Issue(userID, username, role string) (*jwt.Token, error)
}

// UserService handles user business logic
type UserService struct {
	users  UserStore
	tokens TokenIssuer
	logger *logger.Logger
	cost   int
}

// NewUserService creates a new user service
func NewUserService(users UserStore, tokens TokenIssuer, log *logger.Logger) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		logger: log.WithComponent("user-service"),
		cost:   bcrypt.DefaultCost,
	}
}

// CreateUserRequest represents a create user request
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RUT       string `json:"rut" validate:"omitempty,rut"`
	Phone     string `json:"phone" validate:"omitempty,cl_phone"`
	Role      string `json:"role" validate:"omitempty,role"`
	Address   string `json:"address"`
	ComunaID  *int   `json:"comuna_id"`
	Position  string `json:"position"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the signed token and the user it belongs to
type LoginResponse struct {
	*jwt.Token
	User *domain.User `json:"user"`
}

// Create validates and stores a new user. The RUT is stored formatted and
// the phone normalized to +569XXXXXXXX.
func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*domain.User, error) {
	details := map[string]string{}

	user := &domain.User{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Address:   req.Address,
		ComunaID:  req.ComunaID,
		Position:  req.Position,
		IsActive:  true,
	}

	if user.Role == "" {
		user.Role = domain.DefaultRole
	}
	if !permissions.IsValidRole(user.Role) {
		details["role"] = "must be one of: " + strings.Join(permissions.Roles, ", ")
	}

	if req.RUT != "" {
		if res := validation.ValidateRUT(req.RUT); res.Valid {
			user.RUT = &res.Formatted
		} else {
			details["rut"] = res.Message
		}
	}

	if req.Phone != "" {
		if res := validation.ValidatePhone(req.Phone); res.Valid {
			user.Phone = &res.Formatted
		} else {
			details["phone"] = res.Message
		}
	}

	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}
	user.PasswordHash = string(hash)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("user created")
	return user, nil
}

// Login checks the credentials and issues an access token
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.InvalidCredentials()
	}
	if !user.IsActive {
		return nil, errors.Forbidden("account is disabled")
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to sign token")
		return nil, errors.Internal("failed to issue token")
	}

	return &LoginResponse{Token: token, User: user}, nil
}

// GetByID gets a user by ID
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// List lists users with pagination
func (s *UserService) List(ctx context.Context, page, perPage int) ([]*domain.User, int64, error) {
	return s.users.List(ctx, page, perPage)
}
