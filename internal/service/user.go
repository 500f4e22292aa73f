package service

import (
	"context"
	"errors"
	"fmt"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/repository"
	"strings"

	"gorm.io/gorm"
)

type UserService interface {
	GetProfile(ctx context.Context, uid string) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, update *dto.ProfileUpdate) (*model.UserProfile, error)
}

type userServiceImpl struct {
	userRepo repository.UserRepository
}

func NewUserService(
	userRepo repository.UserRepository,
) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
	}
}

func (s *userServiceImpl) GetProfile(ctx context.Context, uid string) (*model.UserProfile, error) {
	profile, err := s.userRepo.Get(ctx, uid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// first visit, nothing to prefill yet
		return &model.UserProfile{UID: uid}, nil
	}
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("get profile: %w", err))
	}
	return profile, nil
}

func (s *userServiceImpl) UpdateProfile(ctx context.Context, uid string, update *dto.ProfileUpdate) (*model.UserProfile, error) {
	profile := &model.UserProfile{UID: uid}
	var columns []string

	set := func(column string, src *string, dst *string) {
		if src == nil {
			return
		}
		*dst = strings.TrimSpace(*src)
		columns = append(columns, column)
	}
	set("name", update.Name, &profile.Name)
	set("email", update.Email, &profile.Email)
	set("phone", update.Phone, &profile.Phone)
	set("address", update.Address, &profile.Address)
	set("city", update.City, &profile.City)
	set("pincode", update.Pincode, &profile.Pincode)
	set("country", update.Country, &profile.Country)
	set("notes", update.Notes, &profile.Notes)

	if len(columns) == 0 {
		return nil, apperr.Validation("nothing to update")
	}
	if update.Phone != nil && profile.Phone != "" && !phonePattern.MatchString(profile.Phone) {
		return nil, apperr.Validation("Please enter a valid 10-digit phone number")
	}
	if update.Email != nil && profile.Email != "" && !strings.Contains(profile.Email, "@") {
		return nil, apperr.Validation("Please enter a valid email address")
	}

	if err := s.userRepo.Upsert(ctx, profile, columns); err != nil {
		return nil, apperr.Persistence(fmt.Errorf("save profile: %w", err))
	}
	return s.GetProfile(ctx, uid)
}
