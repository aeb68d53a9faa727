package subscription

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/newsbrief/core/internal/models"
	"github.com/newsbrief/core/internal/pkg/token"
	"gorm.io/gorm"
)

var (
	// ErrInvalidToken means the presented token is missing or malformed, or
	// an unsubscribe signature did not match.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotFound means no subscriber matched the lookup.
	ErrNotFound = errors.New("subscriber not found")
)

// Subscribe outcome statuses.
const (
	StatusSubscribed  = "subscribed"
	StatusPending     = "pending"
	StatusAlready     = "already_subscribed"
	StatusReactivated = "reactivated"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail lower-cases and trims an email address. Every lookup and
// insert goes through this, which is what makes the unique index effectively
// case-insensitive.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidEmail reports whether the normalized address has a basic
// local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func normalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	// Truncate on runes so a multibyte name at the limit stays valid UTF-8.
	if runes := []rune(name); len(runes) > 100 {
		name = string(runes[:100])
	}
	return name
}

// Service owns subscriber rows and their forward-only state transitions.
type Service struct {
	db          *gorm.DB
	doubleOptIn bool
}

func NewService(db *gorm.DB, doubleOptIn bool) *Service {
	return &Service{db: db, doubleOptIn: doubleOptIn}
}

// SubscribeResult describes what Subscribe did.
type SubscribeResult struct {
	Subscriber *models.SubscriberModel
	Status     string
}

// Subscribe records a captcha-cleared subscription request. The email must
// already be normalized and shape-checked by the caller; the captcha result
// is the caller's proof of humanity, so an existing unverified row is
// auto-verified rather than re-sent a confirmation email.
func (s *Service) Subscribe(ctx context.Context, email, name string) (*SubscribeResult, error) {
	db := s.db.WithContext(ctx)
	name = normalizeName(name)
	now := time.Now()

	var sub models.SubscriberModel
	err := db.Where("email = ?", email).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.SubscriberModel{Email: email, Name: name}
		if s.doubleOptIn {
			verificationToken, err := token.NewVerificationToken()
			if err != nil {
				return nil, err
			}
			sub.VerificationToken = verificationToken
			if err := db.Create(&sub).Error; err != nil {
				return nil, err
			}
			return &SubscribeResult{Subscriber: &sub, Status: StatusPending}, nil
		}
		sub.Verified = true
		sub.Active = true
		sub.VerifiedAt = &now
		if err := db.Create(&sub).Error; err != nil {
			return nil, err
		}
		return &SubscribeResult{Subscriber: &sub, Status: StatusSubscribed}, nil

	case err != nil:
		return nil, err
	}

	if sub.Verified && sub.Active {
		return &SubscribeResult{Subscriber: &sub, Status: StatusAlready}, nil
	}

	updates := map[string]interface{}{"active": true}
	status := StatusReactivated
	if !sub.Verified {
		updates["verified"] = true
		updates["verified_at"] = now
		updates["verification_token"] = ""
		if sub.Name == "" && name != "" {
			updates["name"] = name
		}
		status = StatusSubscribed
	}
	if err := db.Model(&sub).Updates(updates).Error; err != nil {
		return nil, err
	}
	sub.Active = true
	sub.Verified = true
	if sub.VerifiedAt == nil {
		sub.VerifiedAt = &now
	}
	return &SubscribeResult{Subscriber: &sub, Status: status}, nil
}

// Verify consumes a verification token. The token is single-use: it is
// cleared on first success, so a replay finds no row and fails. A row that is
// somehow already verified while still holding its token verifies again as a
// no-op.
func (s *Service) Verify(ctx context.Context, presented string) error {
	if len(presented) != token.VerificationTokenLength {
		return ErrInvalidToken
	}

	db := s.db.WithContext(ctx)
	var sub models.SubscriberModel
	err := db.Where("verification_token = ?", presented).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if sub.Verified {
		return nil
	}

	now := time.Now()
	return db.Model(&sub).Updates(map[string]interface{}{
		"verified":           true,
		"active":             true,
		"verified_at":        now,
		"verification_token": "",
	}).Error
}

// Unsubscribe validates the HMAC link signature in constant time, then marks
// the matching row inactive. The signature check happens before the lookup,
// so a valid signature for an email with no row still succeeds silently.
func (s *Service) Unsubscribe(ctx context.Context, linkSecret, email, presented string) error {
	email = NormalizeEmail(email)
	if !token.VerifyUnsubscribeSignature(linkSecret, email, presented) {
		return ErrInvalidToken
	}

	// Idempotent: zero rows affected is not an error.
	return s.db.WithContext(ctx).
		Model(&models.SubscriberModel{}).
		Where("email = ?", email).
		Update("active", false).Error
}

// ListActiveVerified returns all verified, active subscribers.
func (s *Service) ListActiveVerified(ctx context.Context) ([]models.SubscriberModel, error) {
	var subs []models.SubscriberModel
	err := s.db.WithContext(ctx).
		Where("verified = ? AND active = ?", true, true).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}

// Stats holds aggregate subscriber counts.
type Stats struct {
	Total    int64 `json:"total"`
	Verified int64 `json:"verified"`
	Active   int64 `json:"active"`
}

// Stats returns aggregate subscriber counts.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := s.db.WithContext(ctx).Model(&models.SubscriberModel{}).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.SubscriberModel{}).
		Where("verified = ?", true).Count(&stats.Verified).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.SubscriberModel{}).
		Where("active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
