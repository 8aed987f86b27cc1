package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/oraculo-icms/internal/application/dto"
	"github.com/jhoicas/oraculo-icms/internal/domain"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/repository"
	"github.com/jhoicas/oraculo-icms/pkg/jwt"
)

// MinPasswordLength largo mínimo de contraseña.
const MinPasswordLength = 8

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: alta de usuarios y login.
type AuthUseCase struct {
	userRepo repository.UserRepository
	jwtCfg   JWTConfig
	cost     int
	now      func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, jwtCfg: jwtCfg, cost: bcrypt.DefaultCost, now: time.Now}
}

// RegisterUser crea un usuario en la empresa companyID con la password hasheada con bcrypt.
// Devuelve ErrEmailAlreadyExists si el email ya existe.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, companyID string, in dto.RegisterRequest) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = jwt.RoleReadOnly
	}

	var errs []error
	if companyID == "" {
		errs = append(errs, errors.New("company_id requerido"))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs = append(errs, fmt.Errorf("email inválido: %q", in.Email))
	}
	if len(in.Password) < MinPasswordLength {
		errs = append(errs, fmt.Errorf("password debe tener al menos %d caracteres", MinPasswordLength))
	}
	if !validRole(role) {
		errs = append(errs, fmt.Errorf("rol inválido: %q", in.Role))
	}
	if len(errs) > 0 {
		return nil, errors.Join(append([]error{domain.ErrInvalidInput}, errs...)...)
	}

	existing, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cost)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Status:       entity.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// Login verifica email/password, genera JWT y retorna token + usuario.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != entity.UserActive {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.CompanyID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

// ListUsers usuarios de la empresa.
func (uc *AuthUseCase) ListUsers(ctx context.Context, companyID string) ([]dto.UserResponse, error) {
	users, err := uc.userRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, *toUserResponse(u))
	}
	return out, nil
}

// EnsureAdmin crea el admin inicial si el email todavía no existe. created es false
// cuando ya había un usuario con ese email.
func (uc *AuthUseCase) EnsureAdmin(ctx context.Context, companyID, email, password string) (created bool, err error) {
	_, err = uc.RegisterUser(ctx, companyID, dto.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     "Administrador",
		Role:     jwt.RoleAdmin,
	})
	if errors.Is(err, domain.ErrEmailAlreadyExists) {
		return false, nil
	}
	return err == nil, err
}

func validRole(role string) bool {
	switch role {
	case jwt.RoleAdmin, jwt.RoleAnalyst, jwt.RoleReadOnly:
		return true
	}
	return false
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		CompanyID: u.CompanyID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
