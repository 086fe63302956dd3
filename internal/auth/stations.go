package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gatelog/internal/store"
)

var (
	// ErrRegistrationKey is returned when a station presents a wrong key.
	ErrRegistrationKey = errors.New("auth: invalid registration key")
	// ErrInvalidToken covers unknown, reused, expired or malformed refresh tokens.
	ErrInvalidToken = errors.New("auth: invalid refresh token")
)

// Stations registers scanner stations and rotates their tokens.
type Stations struct {
	store      store.Stations
	issuer     string
	key        string
	accessTTL  time.Duration
	refreshTTL time.Duration
	regHash    []byte
}

// NewStations creates the station registry. An empty registrationKeyHash
// lets any station register.
func NewStations(st store.Stations, issuer, signingKey string, accessTTL, refreshTTL time.Duration, registrationKeyHash string) *Stations {
	return &Stations{
		store:      st,
		issuer:     issuer,
		key:        signingKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		regHash:    []byte(registrationKeyHash),
	}
}

// HashKey derives the value stored in REGISTRATION_KEY_HASH.
func HashKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Register records the station and issues its first token pair.
func (s *Stations) Register(ctx context.Context, stationID, registrationKey string) (TokenPair, error) {
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return TokenPair{}, errors.New("station id required")
	}
	if len(s.regHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(s.regHash, []byte(registrationKey)); err != nil {
			return TokenPair{}, ErrRegistrationKey
		}
	}
	if err := s.store.UpsertStation(ctx, stationID); err != nil {
		return TokenPair{}, fmt.Errorf("auth: upsert station: %w", err)
	}
	return s.issue(ctx, stationID)
}

// Refresh exchanges a refresh token for a new pair. Each refresh token
// works once.
func (s *Stations) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := Parse(refreshToken, s.key, s.issuer)
	if err != nil || claims.Use != UseRefresh {
		return TokenPair{}, ErrInvalidToken
	}
	stationID, err := s.store.ConsumeRefreshToken(ctx, refreshToken, time.Now())
	if errors.Is(err, store.ErrNotFound) {
		return TokenPair{}, ErrInvalidToken
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: consume refresh token: %w", err)
	}
	if stationID != claims.Subject {
		return TokenPair{}, ErrInvalidToken
	}
	return s.issue(ctx, stationID)
}

func (s *Stations) issue(ctx context.Context, stationID string) (TokenPair, error) {
	tokens, err := Issue(stationID, RoleStation, s.issuer, s.key, s.accessTTL, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.SaveRefreshToken(ctx, stationID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		return TokenPair{}, fmt.Errorf("auth: save refresh token: %w", err)
	}
	return tokens, nil
}
