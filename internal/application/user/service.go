package user

import (
	"context"
	"errors"
	"strings"

	"deedshare-backend/internal/application/ledger"
	"deedshare-backend/internal/domain"
	"deedshare-backend/internal/pkg/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service holds DB for user registration and lookup.
type Service struct {
	DB *gorm.DB
}

// CreateUserInput carries a registration: login credentials plus the wallet
// address the ledger will know this user by.
type CreateUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
	Address  string `json:"address"`
}

// CreateUser registers a user. The wallet address must be unique; it is the
// identity all shares, listings and proposals are keyed on.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if in.Email == "" || !validation.IsValidEmail(in.Email) {
		return nil, errors.New("Invalid email format")
	}
	if in.Password == "" || !validation.IsValidPassword(in.Password) {
		return nil, errors.New("Invalid password format")
	}
	fullname := strings.TrimSpace(in.Fullname)
	if fullname == "" || !validation.IsValidFullname(fullname) {
		return nil, errors.New("Full name contains invalid characters (only letters, spaces, hyphens, and apostrophes allowed)")
	}
	address := ledger.Normalize(in.Address)
	if !validation.IsValidAddress(address) {
		return nil, errors.New("Invalid wallet address format")
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))

	var existing domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, errors.New("Email already registered")
	}
	if err := s.DB.WithContext(ctx).Where("address = ?", address).First(&existing).Error; err == nil {
		return nil, errors.New("Wallet address already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Fullname:     fullname,
		Address:      address,
		Role:         domain.RoleUser,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// FindByAddress returns the user owning a wallet address.
func (s *Service) FindByAddress(ctx context.Context, address string) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("address = ?", ledger.Normalize(address)).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("User not found")
		}
		return nil, err
	}
	return &u, nil
}
