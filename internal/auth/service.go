package auth

import (
	"context"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

const minPasswordLength = 6

// Accounts is the account storage the auth flows depend on.
type Accounts interface {
	Create(ctx context.Context, in account.NewAccount) (account.Account, error)
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// Notifier delivers account emails. Failures are logged, never returned to
// the caller of the auth flow.
type Notifier interface {
	Welcome(ctx context.Context, to account.Identity) error
	PasswordReset(ctx context.Context, to account.Identity, resetURL string) error
}

type Service struct {
	accounts   Accounts
	tokens     *Tokens
	notifier   Notifier
	appURL     string
	bcryptCost int
}

func NewService(accounts Accounts, tokens *Tokens, notifier Notifier, appURL string) *Service {
	return &Service{
		accounts:   accounts,
		tokens:     tokens,
		notifier:   notifier,
		appURL:     strings.TrimRight(appURL, "/"),
		bcryptCost: bcrypt.DefaultCost,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	City     string `json:"city"`
	Phone    string `json:"phone"`
}

type Session struct {
	Token string          `json:"token"`
	User  account.Account `json:"user"`
}

// Register creates a customer or provider account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.City = strings.TrimSpace(in.City)
	in.Phone = strings.TrimSpace(in.Phone)

	switch {
	case in.Name == "":
		return Session{}, apperr.BadRequest("name is required")
	case !account.ValidEmail(in.Email):
		return Session{}, apperr.BadRequest("invalid email format")
	case in.City == "":
		return Session{}, apperr.BadRequest("city is required")
	case !account.ValidPhone(in.Phone):
		return Session{}, apperr.BadRequest("phone must be exactly 8 digits")
	}
	role := account.Role(in.Role)
	if role != account.RoleCustomer && role != account.RoleProvider {
		return Session{}, apperr.BadRequest("role must be customer or provider")
	}
	if err := checkPassword(in.Password); err != nil {
		return Session{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return Session{}, apperr.Internal("failed to hash password", err)
	}

	a, err := s.accounts.Create(ctx, account.NewAccount{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hashed),
		Role:         role,
		City:         in.City,
		Phone:        in.Phone,
	})
	if err != nil {
		return Session{}, err
	}

	if err := s.notifier.Welcome(ctx, a.Info()); err != nil {
		log.Printf("[auth] welcome email for %s not queued: %v", a.Info().ID, err)
	}
	return s.session(a)
}

// Login verifies credentials. Blocked accounts are refused.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, apperr.BadRequest("email and password are required")
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Session{}, apperr.Unauthorized("invalid credentials")
		}
		return Session{}, err
	}
	info := a.Info()
	if err := bcrypt.CompareHashAndPassword([]byte(info.PasswordHash), []byte(password)); err != nil {
		return Session{}, apperr.Unauthorized("invalid credentials")
	}
	if info.IsBlocked {
		return Session{}, apperr.Forbidden("account blocked")
	}
	return s.session(a)
}

// ForgotPassword queues a reset link. Unknown emails are ignored so the
// response does not reveal which addresses are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !account.ValidEmail(email) {
		return apperr.BadRequest("invalid email format")
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	info := a.Info()

	token, err := s.tokens.IssueReset(info.ID, info.PasswordHash)
	if err != nil {
		return apperr.Internal("failed to create reset token", err)
	}
	resetURL := s.appURL + "/update-password/" + token
	if err := s.notifier.PasswordReset(ctx, info, resetURL); err != nil {
		log.Printf("[auth] password reset email for %s not queued: %v", info.ID, err)
	}
	return nil
}

// ResetPassword sets a new password from a reset token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	userID, fp, err := s.tokens.ParseReset(token)
	if err != nil {
		return apperr.Unauthorized("reset link is invalid or expired")
	}
	a, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Unauthorized("reset link is invalid or expired")
		}
		return err
	}
	if fingerprint(a.Info().PasswordHash) != fp {
		return apperr.Unauthorized("reset link is invalid or expired")
	}
	return s.setPassword(ctx, userID, newPassword)
}

// ChangePassword updates the caller's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, p account.Principal, current, next string) error {
	if err := checkPassword(next); err != nil {
		return err
	}
	a, err := s.accounts.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.Info().PasswordHash), []byte(current)); err != nil {
		return apperr.Forbidden("current password is incorrect")
	}
	return s.setPassword(ctx, p.ID, next)
}

func (s *Service) setPassword(ctx context.Context, userID, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	return s.accounts.UpdatePassword(ctx, userID, string(hashed))
}

func (s *Service) session(a account.Account) (Session, error) {
	info := a.Info()
	token, err := s.tokens.Issue(account.Principal{ID: info.ID, Role: info.Role})
	if err != nil {
		return Session{}, apperr.Internal("failed to create token", err)
	}
	return Session{Token: token, User: a}, nil
}

func checkPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return apperr.BadRequest("password is required")
	}
	if len(password) < minPasswordLength {
		return apperr.BadRequest("password must be at least 6 characters")
	}
	if len(password) > 72 {
		return apperr.BadRequest("password too long (max 72 bytes)")
	}
	return nil
}
