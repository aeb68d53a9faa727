package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/newsbrief/core/internal/models"
	"github.com/newsbrief/core/internal/pkg/token"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.SubscriberModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustSubscriber(t *testing.T, db *gorm.DB, email string) *models.SubscriberModel {
	t.Helper()
	var sub models.SubscriberModel
	if err := db.Where("email = ?", email).First(&sub).Error; err != nil {
		t.Fatalf("load subscriber %s: %v", email, err)
	}
	return &sub
}

func TestSubscribeNewAutoVerified(t *testing.T) {
	svc := NewService(newTestDB(t), false)
	ctx := context.Background()

	result, err := svc.Subscribe(ctx, "a@x.com", "Ada")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if result.Status != StatusSubscribed {
		t.Fatalf("status = %q, want %q", result.Status, StatusSubscribed)
	}
	sub := result.Subscriber
	if !sub.Verified || !sub.Active {
		t.Fatalf("subscriber verified=%v active=%v, want both true", sub.Verified, sub.Active)
	}
	if sub.VerifiedAt == nil {
		t.Fatal("VerifiedAt not set")
	}
	if sub.VerificationToken != "" {
		t.Fatalf("verification token = %q, want empty", sub.VerificationToken)
	}
}

func TestSubscribeNewDoubleOptIn(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, true)
	ctx := context.Background()

	result, err := svc.Subscribe(ctx, "a@x.com", "Ada")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if result.Status != StatusPending {
		t.Fatalf("status = %q, want %q", result.Status, StatusPending)
	}
	sub := mustSubscriber(t, db, "a@x.com")
	if sub.Verified || sub.Active {
		t.Fatalf("pending subscriber verified=%v active=%v, want both false", sub.Verified, sub.Active)
	}
	if len(sub.VerificationToken) != token.VerificationTokenLength {
		t.Fatalf("token length = %d, want %d", len(sub.VerificationToken), token.VerificationTokenLength)
	}
}

func TestSubscribeTruncatesLongName(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, false)

	if _, err := svc.Subscribe(context.Background(), "a@x.com", strings.Repeat("é", 150)); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	name := mustSubscriber(t, db, "a@x.com").Name
	if !utf8.ValidString(name) {
		t.Fatal("stored name is not valid UTF-8")
	}
	if got := utf8.RuneCountInString(name); got != 100 {
		t.Fatalf("stored name has %d runes, want 100", got)
	}
}

func TestSubscribeAlreadySubscribed(t *testing.T) {
	svc := NewService(newTestDB(t), false)
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	result, err := svc.Subscribe(ctx, "a@x.com", "")
	if err != nil {
		t.Fatalf("second Subscribe: %v", err)
	}
	if result.Status != StatusAlready {
		t.Fatalf("status = %q, want %q", result.Status, StatusAlready)
	}
}

func TestSubscribeReactivates(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, false)
	ctx := context.Background()
	secret := "link-secret"

	if _, err := svc.Subscribe(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	sig := token.UnsubscribeSignature(secret, "a@x.com")
	if err := svc.Unsubscribe(ctx, secret, "a@x.com", sig); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if sub := mustSubscriber(t, db, "a@x.com"); sub.Active {
		t.Fatal("subscriber still active after unsubscribe")
	}

	result, err := svc.Subscribe(ctx, "a@x.com", "")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if result.Status != StatusReactivated {
		t.Fatalf("status = %q, want %q", result.Status, StatusReactivated)
	}
	if sub := mustSubscriber(t, db, "a@x.com"); !sub.Active || !sub.Verified {
		t.Fatalf("after reactivation verified=%v active=%v, want both true", sub.Verified, sub.Active)
	}
}

func TestSubscribeAutoVerifiesPendingRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pending := NewService(db, true)
	if _, err := pending.Subscribe(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("pending Subscribe: %v", err)
	}

	// A second captcha-cleared request is proof enough, no second email.
	result, err := pending.Subscribe(ctx, "a@x.com", "Ada")
	if err != nil {
		t.Fatalf("second Subscribe: %v", err)
	}
	if result.Status != StatusSubscribed {
		t.Fatalf("status = %q, want %q", result.Status, StatusSubscribed)
	}
	sub := mustSubscriber(t, db, "a@x.com")
	if !sub.Verified || !sub.Active {
		t.Fatalf("verified=%v active=%v, want both true", sub.Verified, sub.Active)
	}
	if sub.VerificationToken != "" {
		t.Fatal("verification token not cleared")
	}
	if sub.Name != "Ada" {
		t.Fatalf("name = %q, want merged %q", sub.Name, "Ada")
	}
}

func TestVerifyConsumesToken(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, true)
	ctx := context.Background()

	result, err := svc.Subscribe(ctx, "a@x.com", "")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	tok := result.Subscriber.VerificationToken

	if err := svc.Verify(ctx, tok); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	sub := mustSubscriber(t, db, "a@x.com")
	if !sub.Verified || !sub.Active {
		t.Fatalf("verified=%v active=%v, want both true", sub.Verified, sub.Active)
	}
	if sub.VerificationToken != "" {
		t.Fatal("token not cleared after verification")
	}

	// Single-use: the cleared token no longer matches any row.
	if err := svc.Verify(ctx, tok); !errors.Is(err, ErrNotFound) {
		t.Fatalf("replayed Verify = %v, want ErrNotFound", err)
	}
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	svc := NewService(newTestDB(t), true)
	ctx := context.Background()

	for _, tok := range []string{"", "short", "3fa85f64befc4f0e8b1f2a3c4d5e6f7a99"} {
		if err := svc.Verify(ctx, tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q) = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestVerifyUnknownToken(t *testing.T) {
	svc := NewService(newTestDB(t), true)
	err := svc.Verify(context.Background(), "3fa85f64befc4f0e8b1f2a3c4d5e6f7a")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Verify = %v, want ErrNotFound", err)
	}
}

func TestUnsubscribeRejectsBadSignature(t *testing.T) {
	svc := NewService(newTestDB(t), false)
	err := svc.Unsubscribe(context.Background(), "link-secret", "a@x.com", "not-the-signature")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Unsubscribe = %v, want ErrInvalidToken", err)
	}
}

func TestUnsubscribeUnknownEmailSucceeds(t *testing.T) {
	svc := NewService(newTestDB(t), false)
	secret := "link-secret"
	sig := token.UnsubscribeSignature(secret, "ghost@x.com")
	if err := svc.Unsubscribe(context.Background(), secret, "ghost@x.com", sig); err != nil {
		t.Fatalf("Unsubscribe with no matching row = %v, want nil", err)
	}
}

func TestListActiveVerifiedAndStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	auto := NewService(db, false)
	pending := NewService(db, true)
	secret := "link-secret"

	if _, err := auto.Subscribe(ctx, "active@x.com", ""); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := auto.Subscribe(ctx, "gone@x.com", ""); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := pending.Subscribe(ctx, "pending@x.com", ""); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	sig := token.UnsubscribeSignature(secret, "gone@x.com")
	if err := auto.Unsubscribe(ctx, secret, "gone@x.com", sig); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	subs, err := auto.ListActiveVerified(ctx)
	if err != nil {
		t.Fatalf("ListActiveVerified: %v", err)
	}
	if len(subs) != 1 || subs[0].Email != "active@x.com" {
		t.Fatalf("ListActiveVerified = %+v, want exactly active@x.com", subs)
	}

	stats, err := auto.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Verified != 2 || stats.Active != 1 {
		t.Fatalf("Stats = %+v, want total=3 verified=2 active=1", stats)
	}
}

func TestNormalizeAndValidateEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}

	valid := []string{"a@x.com", "first.last@sub.domain.io"}
	for _, email := range valid {
		if !ValidEmail(email) {
			t.Errorf("ValidEmail(%q) = false, want true", email)
		}
	}
	invalid := []string{"", "plain", "a@b", "a b@x.com", "@x.com", "a@@x.com"}
	for _, email := range invalid {
		if ValidEmail(email) {
			t.Errorf("ValidEmail(%q) = true, want false", email)
		}
	}
}
