package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"insight-backend/internal/kvstore"
	"insight-backend/internal/mailer"
	"insight-backend/internal/models"
)

const (
	profileSortKey = "PROFILE"
	resetSortKey   = "PASSWORD_RESET"

	resetCodeValidity = 10 * time.Minute
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetCode   = errors.New("invalid or expired reset code")
)

// Service handles registration, login and OTP password reset against the
// same single-table store the upload pipeline writes projects to.
type Service struct {
	store           *kvstore.Store
	mailer          mailer.Mailer
	jwtSecret       []byte
	expirationHours int
}

func NewService(store *kvstore.Store, m mailer.Mailer, jwtSecret string, expirationHours int) *Service {
	if expirationHours <= 0 {
		expirationHours = 24
	}
	return &Service{
		store:           store,
		mailer:          m,
		jwtSecret:       []byte(jwtSecret),
		expirationHours: expirationHours,
	}
}

// UserIDFromEmail derives the stable owner id: the first 12 hex characters
// of sha256 over the lowercased email. The raw email never appears in keys.
func UserIDFromEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(email)))
	return fmt.Sprintf("%x", sum)[:12]
}

func partitionKey(userID string) string {
	return "USER#" + userID
}

// Initials derives a two-letter display tag from a full name.
func Initials(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) >= 2 {
		return strings.ToUpper(string([]rune(parts[0])[0]) + string([]rune(parts[len(parts)-1])[0]))
	}
	runes := []rune(strings.TrimSpace(fullName))
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}

func (s *Service) getProfile(userID string) (*models.UserProfile, error) {
	item, err := s.store.GetItem(partitionKey(userID), profileSortKey)
	if err != nil {
		return nil, err
	}
	var profile models.UserProfile
	if err := json.Unmarshal(item.Value, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

func (s *Service) putProfile(userID string, profile *models.UserProfile) error {
	value, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return s.store.PutItem(kvstore.Item{PK: partitionKey(userID), SK: profileSortKey, Value: value})
}

func (s *Service) createToken(userID, email, fullName string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"user_id":   userID,
		"email":     email,
		"full_name": fullName,
		"iat":       now.Unix(),
		"exp":       now.Add(time.Duration(s.expirationHours) * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Register creates a profile and logs the user straight in.
func (s *Service) Register(email, password, fullName string) (*models.AuthResponse, error) {
	userID := UserIDFromEmail(email)

	if _, err := s.getProfile(userID); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	profile := &models.UserProfile{
		Email:        strings.ToLower(email),
		FullName:     fullName,
		PasswordHash: string(hash),
		CreatedAt:    timestamp,
		LastLogin:    timestamp,
	}
	if err := s.putProfile(userID, profile); err != nil {
		return nil, err
	}

	token, err := s.createToken(userID, email, fullName)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Message:   "Registration successful",
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: s.expirationHours * 3600,
		User: models.UserInfo{
			UserID:   userID,
			Email:    strings.ToLower(email),
			FullName: fullName,
			Initials: Initials(fullName),
		},
	}, nil
}

// Login verifies credentials and issues a fresh token. A missing account
// and a wrong password produce the same error.
func (s *Service) Login(email, password string) (*models.AuthResponse, error) {
	userID := UserIDFromEmail(email)

	profile, err := s.getProfile(userID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	profile.LastLogin = timestamp
	if err := s.putProfile(userID, profile); err != nil {
		return nil, err
	}

	token, err := s.createToken(userID, profile.Email, profile.FullName)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Message:   "Login successful",
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: s.expirationHours * 3600,
		User: models.UserInfo{
			UserID:    userID,
			Email:     profile.Email,
			FullName:  profile.FullName,
			Initials:  Initials(profile.FullName),
			LastLogin: timestamp,
		},
	}, nil
}

// RequestPasswordReset stores and emails a one-time code. For an unknown
// email it does nothing but still reports success, so the endpoint never
// reveals whether an account exists.
func (s *Service) RequestPasswordReset(email string) (*models.PasswordResetResponse, error) {
	response := &models.PasswordResetResponse{
		Message: "If an account exists for this email, a reset code has been sent.",
		Email:   strings.ToLower(email),
	}

	userID := UserIDFromEmail(email)
	profile, err := s.getProfile(userID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return response, nil
	}
	if err != nil {
		return nil, err
	}

	code, err := generateOTP()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reset := models.PasswordReset{
		OTP:       code,
		ExpiresAt: now.Add(resetCodeValidity).Format(time.RFC3339),
		CreatedAt: now.Format(time.RFC3339),
	}
	value, err := json.Marshal(reset)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reset record: %w", err)
	}
	if err := s.store.PutItem(kvstore.Item{PK: partitionKey(userID), SK: resetSortKey, Value: value}); err != nil {
		return nil, err
	}

	if err := s.mailer.SendPasswordResetCode(profile.Email, code); err != nil {
		log.Printf("failed to deliver reset code for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to send reset code")
	}

	return response, nil
}

// VerifyReset consumes a pending code and replaces the password hash.
// The code is deleted on success; expired or mismatched codes fail with
// ErrInvalidResetCode.
func (s *Service) VerifyReset(email, otp, newPassword string) (*models.VerifyResetResponse, error) {
	userID := UserIDFromEmail(email)

	profile, err := s.getProfile(userID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrInvalidResetCode
	}
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetItem(partitionKey(userID), resetSortKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrInvalidResetCode
	}
	if err != nil {
		return nil, err
	}

	var reset models.PasswordReset
	if err := json.Unmarshal(item.Value, &reset); err != nil {
		return nil, fmt.Errorf("failed to decode reset record: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, reset.ExpiresAt)
	if err != nil || time.Now().UTC().After(expiresAt) || reset.OTP != otp {
		return nil, ErrInvalidResetCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	profile.PasswordHash = string(hash)
	if err := s.putProfile(userID, profile); err != nil {
		return nil, err
	}

	// Single use: the record goes away with the successful reset.
	if err := s.store.DeleteItem(partitionKey(userID), resetSortKey); err != nil {
		return nil, err
	}

	return &models.VerifyResetResponse{
		Message: "Password reset successful. You can now login with your new password.",
	}, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
