package dto

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/behnamfe76/gatekeeper/internal/auth"
	"github.com/behnamfe76/gatekeeper/internal/domain"
	"github.com/behnamfe76/gatekeeper/internal/validation"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginSchema validates LoginRequest bodies.
var LoginSchema = validation.NewObject(
	validation.F("email", func(r *LoginRequest) interface{} { return r.Email },
		ozzo.Required, is.Email.Error("Invalid email")),
	validation.F("password", func(r *LoginRequest) interface{} { return r.Password },
		ozzo.Required),
)

// CreateUserRequest payload for new users.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUserSchema validates CreateUserRequest bodies.
var CreateUserSchema = validation.NewObject(
	validation.F("name", func(r *CreateUserRequest) interface{} { return r.Name },
		ozzo.Required,
		ozzo.RuneLength(2, 0).Error("Name too short"),
		ozzo.RuneLength(0, 100).Error("Name too long")),
	validation.F("email", func(r *CreateUserRequest) interface{} { return r.Email },
		ozzo.Required,
		is.Email.Error("Invalid email"),
		ozzo.RuneLength(0, 255).Error("Email too long")),
	validation.F("password", func(r *CreateUserRequest) interface{} { return r.Password },
		ozzo.Required,
		ozzo.RuneLength(6, 0).Error("Password too short"),
		ozzo.By(fitsBcrypt)),
	validation.F("role", func(r *CreateUserRequest) interface{} { return r.Role },
		ozzo.Required,
		ozzo.In(string(domain.RoleAdmin), string(domain.RoleUser)).Error("Invalid role")),
)

// fitsBcrypt rejects passwords bcrypt would refuse to hash. The limit is in
// bytes, so multi-byte characters count more than once.
func fitsBcrypt(value interface{}) error {
	password, _ := value.(string)
	if len(password) > auth.MaxPasswordBytes {
		return errors.New("Password too long")
	}
	return nil
}

// UserIDParams is the raw :id route parameter.
type UserIDParams struct {
	ID string `params:"id"`
}

// UserID is the normalized form of UserIDParams.
type UserID struct {
	ID int64
}

// UserIDSchema validates and converts the :id parameter.
var UserIDSchema = validation.NewObject(
	validation.F("id", func(p *UserIDParams) interface{} { return p.ID },
		ozzo.Required,
		ozzo.Match(digitsOnly).Error("ID must be a number")),
).Normalize(func(p UserIDParams) (any, error) {
	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		return nil, ozzo.Errors{"id": errors.New("ID is out of range")}
	}
	return UserID{ID: id}, nil
})

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserResponse strips private fields from user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}
