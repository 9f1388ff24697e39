package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-access-engine/internal/domain/access"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	// ID opcional: si el identity provider ya tiene uno, se respeta.
	ID    string
	Name  string
	Email string
	Role  string
}

func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (User, error) {
	if actor.Role != access.RoleAdmin {
		return User{}, ErrForbidden
	}

	role, ok := access.ParseRole(in.Role)
	if !ok {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Email, is.EmailFormat),
	)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}

	now := s.now()
	u := User{
		ID:        id,
		Name:      in.Name,
		Email:     in.Email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Resolve completa el nombre del actor con el directorio. Un usuario que no
// está en el directorio sigue siendo válido: se queda con su userID.
func (s *Service) Resolve(ctx context.Context, a access.Actor) access.Actor {
	u, err := s.repo.GetByID(ctx, a.UserID)
	if err != nil {
		return a
	}
	a.Name = u.Name
	return a
}
