package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/currency"

	"github.com/saurabhwebdev/invoicaura/internal/platform/httpx"
)

var ErrNotFound = fmt.Errorf("profile: %w", httpx.ErrNotFound)

var validDateFormats = map[string]bool{
	"DD/MM/YYYY": true,
	"MM/DD/YYYY": true,
	"YYYY-MM-DD": true,
}

// Service exposes profile reads and writes.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetByUser returns the stored profile or defaults when none exists yet.
func (s *Service) GetByUser(ctx context.Context, userID string) (Profile, error) {
	p, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultProfile(userID), nil
		}
		return Profile{}, err
	}
	return p, nil
}

// UpsertInput carries profile fields for create or replace.
type UpsertInput struct {
	DisplayName   string  `validate:"max=120"`
	Currency      string  `validate:"required"`
	DateFormat    string  `validate:"required"`
	GSTPercentage float64 `validate:"gte=0,lte=100"`
	TDSPercentage float64 `validate:"gte=0,lte=100"`
}

func (s *Service) Upsert(ctx context.Context, userID string, in UpsertInput) (Profile, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Currency))
	if _, err := currency.ParseISO(code); err != nil {
		return Profile{}, fmt.Errorf("%w: unknown currency %q", httpx.ErrValidation, in.Currency)
	}
	if !validDateFormats[in.DateFormat] {
		return Profile{}, fmt.Errorf("%w: unsupported date format %q", httpx.ErrValidation, in.DateFormat)
	}
	if in.GSTPercentage < 0 || in.GSTPercentage > 100 {
		return Profile{}, fmt.Errorf("%w: gst percentage out of range", httpx.ErrValidation)
	}
	if in.TDSPercentage < 0 || in.TDSPercentage > 100 {
		return Profile{}, fmt.Errorf("%w: tds percentage out of range", httpx.ErrValidation)
	}

	p, err := s.repo.Upsert(ctx, Profile{
		UserID:        userID,
		DisplayName:   strings.TrimSpace(in.DisplayName),
		Currency:      code,
		DateFormat:    in.DateFormat,
		GSTPercentage: in.GSTPercentage,
		TDSPercentage: in.TDSPercentage,
	})
	if err != nil {
		return Profile{}, err
	}
	s.logger.Info("profile saved", "user_id", userID, "currency", p.Currency)
	return p, nil
}

func defaultProfile(userID string) Profile {
	return Profile{
		UserID:     userID,
		Currency:   "INR",
		DateFormat: "DD/MM/YYYY",
	}
}
