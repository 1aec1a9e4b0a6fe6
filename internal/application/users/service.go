package users

import (
	"context"
	"errors"
	"strings"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service registers coaches and manages their season account and point card.
type Service struct {
	DB          *gorm.DB
	Season      string
	InitialCash decimal.Decimal
}

// Register creates a user with a season account and point card. A known
// external id is reactivated instead, keeping its history.
func (s *Service) Register(ctx context.Context, externalID int64, name string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if externalID == 0 || name == "" {
		return nil, errors.New("external id and name are required")
	}
	var user domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("external_id = ?", externalID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = domain.User{ExternalID: externalID, Name: name}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			log.Info().Int64("external_id", externalID).Str("name", name).Msg("Coach registered")
		} else if err != nil {
			return err
		}
		return s.activate(tx, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Activate clears the soft delete flag and makes sure the current season has an
// account and a point card. Older seasons' rows are kept.
func (s *Service) Activate(ctx context.Context, user *domain.User) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.activate(tx, user)
	})
}

func (s *Service) activate(tx *gorm.DB, user *domain.User) error {
	if user.Deleted {
		if err := tx.Model(user).Update("deleted", false).Error; err != nil {
			return err
		}
		user.Deleted = false
		log.Info().Int64("external_id", user.ExternalID).Msg("Coach reactivated")
	}
	var account domain.Account
	err := tx.Where("user_id = ? AND season = ?", user.ID, s.Season).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = domain.Account{UserID: user.ID, Season: s.Season, Amount: s.InitialCash}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	var card domain.PointCard
	err = tx.Where("user_id = ? AND season = ?", user.ID, s.Season).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.PointCard{UserID: user.ID, Season: s.Season}).Error
	}
	return err
}

// Deactivate soft deletes a user. Accounts, shares and orders stay in place.
func (s *Service) Deactivate(ctx context.Context, externalID int64) error {
	res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("external_id = ?", externalID).Update("deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	log.Info().Int64("external_id", externalID).Msg("Coach deactivated")
	return nil
}

// ByExternalID returns the user with the given chat id, active or not.
func (s *Service) ByExternalID(ctx context.Context, externalID int64) (*domain.User, error) {
	var user domain.User
	err := s.DB.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Search finds active users whose name contains term, case-insensitively.
func (s *Service) Search(ctx context.Context, term string) ([]domain.User, error) {
	var out []domain.User
	err := s.DB.WithContext(ctx).
		Where("deleted = ? AND LOWER(name) LIKE ?", false, "%"+strings.ToLower(term)+"%").
		Order("name").
		Find(&out).Error
	return out, err
}

// Account returns the current season account of a user.
func (s *Service) Account(ctx context.Context, user *domain.User) (*domain.Account, error) {
	var account domain.Account
	err := s.DB.WithContext(ctx).Where("user_id = ? AND season = ?", user.ID, s.Season).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Shares lists the share rows of a user.
func (s *Service) Shares(ctx context.Context, user *domain.User) ([]domain.Share, error) {
	var out []domain.Share
	err := s.DB.WithContext(ctx).Where("user_id = ?", user.ID).Find(&out).Error
	return out, err
}
