package account

import (
	"context"
	"regexp"
	"strings"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{8}$`)
)

func ValidEmail(email string) bool { return emailPattern.MatchString(email) }
func ValidPhone(phone string) bool { return phonePattern.MatchString(phone) }

// Repository is the subset of Store the profile service needs.
type Repository interface {
	GetByID(ctx context.Context, id string) (Account, error)
	UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (Account, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Me(ctx context.Context, p Principal) (Account, error) {
	return s.repo.GetByID(ctx, p.ID)
}

func (s *Service) Public(ctx context.Context, id string) (PublicProfile, error) {
	if err := apperr.CheckID(id, "user"); err != nil {
		return PublicProfile{}, err
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return PublicProfile{}, err
	}
	return ToPublic(a), nil
}

// UpdateProfile edits the caller's own profile. Role and stats are not
// editable here.
func (s *Service) UpdateProfile(ctx context.Context, p Principal, u ProfileUpdate) (Account, error) {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, apperr.BadRequest("name cannot be empty")
		}
		u.Name = &name
	}
	if u.City != nil {
		city := strings.TrimSpace(*u.City)
		if city == "" {
			return nil, apperr.BadRequest("city cannot be empty")
		}
		u.City = &city
	}
	if u.Phone != nil {
		phone := strings.TrimSpace(*u.Phone)
		if !ValidPhone(phone) {
			return nil, apperr.BadRequest("phone must be exactly 8 digits")
		}
		u.Phone = &phone
	}
	if u.Bio != nil && len(*u.Bio) > 2000 {
		return nil, apperr.BadRequest("bio too long (max 2000 chars)")
	}
	if u.Skills != nil {
		cleaned := make([]string, 0, len(*u.Skills))
		for _, skill := range *u.Skills {
			if skill = strings.TrimSpace(skill); skill != "" {
				cleaned = append(cleaned, skill)
			}
		}
		u.Skills = &cleaned
	}
	return s.repo.UpdateProfile(ctx, p.ID, u)
}
