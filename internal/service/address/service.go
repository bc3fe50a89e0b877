// Package address manages a user's delivery addresses.
package address

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"storefront/internal/domain"
	addressrepo "storefront/internal/repository/address"
)

// Input is a new address as entered by the user.
type Input struct {
	Label      string `json:"label" validate:"max=40"`
	FullName   string `json:"fullName" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,numeric,len=10"`
	Line1      string `json:"line1" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=80"`
	State      string `json:"state" validate:"required,max=80"`
	PostalCode string `json:"postalCode" validate:"required,numeric,len=6"`
	Country    string `json:"country" validate:"omitempty,len=2,alpha"`
}

type Service struct {
	repo     addressrepo.Repository
	validate *validator.Validate
	logger   *log.Logger
}

func New(repo addressrepo.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{repo: repo, validate: v, logger: logger}
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Address, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.repo.ListActive(ctx, userID)
}

// Create stores a new address. The user's first address becomes the default.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*domain.Address, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	in = trimInput(in)
	if err := s.check(in); err != nil {
		return nil, err
	}
	existing, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, domain.Address{
		UserID:     userID,
		Label:      in.Label,
		FullName:   in.FullName,
		Phone:      in.Phone,
		Line1:      in.Line1,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    strings.ToUpper(in.Country),
		IsDefault:  len(existing) == 0,
	})
}

// Delete soft-deletes an address. The last active address cannot be removed.
// The default can only be removed when reassignTo names another address,
// which becomes the default first.
func (s *Service) Delete(ctx context.Context, userID, id, reassignTo string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	list, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return err
	}
	target, found := find(list, id)
	if !found {
		return domain.ErrNotFound
	}
	if len(list) == 1 {
		return domain.ErrLastAddress
	}
	if target.IsDefault {
		if reassignTo == "" {
			return domain.ErrDefaultAddress
		}
		if _, ok := find(list, reassignTo); !ok || reassignTo == id {
			return domain.Invalid("reassignTo", "must name another active address")
		}
		if err := s.repo.SetDefault(ctx, userID, reassignTo); err != nil {
			return err
		}
	}
	if err := s.repo.Deactivate(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Printf("address: deleted user=%s id=%s", userID, id)
	return nil
}

func (s *Service) SetDefault(ctx context.Context, userID, id string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	return s.repo.SetDefault(ctx, userID, id)
}

func (s *Service) check(in Input) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return domain.Invalid(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be %s characters", fe.Param())
		}
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "numeric":
		return "must contain digits only"
	case "alpha":
		return "must contain letters only"
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}

func trimInput(in Input) Input {
	in.Label = strings.TrimSpace(in.Label)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Line1 = strings.TrimSpace(in.Line1)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.Country = strings.TrimSpace(in.Country)
	return in
}

func find(list []domain.Address, id string) (domain.Address, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Address{}, false
}
