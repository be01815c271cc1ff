// Package workspace assembles the per-user dashboard snapshot and caches it
// in Redis between mutations.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/saurabhwebdev/invoicaura/internal/invoice"
	"github.com/saurabhwebdev/invoicaura/internal/profile"
	"github.com/saurabhwebdev/invoicaura/internal/project"
	"github.com/saurabhwebdev/invoicaura/internal/vendor"
)

// Snapshot bundles everything the dashboard needs in one payload.
type Snapshot struct {
	Projects    []project.Project `json:"projects"`
	Invoices    []invoice.Invoice `json:"invoices"`
	Vendors     []vendor.Vendor   `json:"vendors"`
	Profile     profile.Profile   `json:"profile"`
	RefreshedAt time.Time         `json:"refreshedAt"`
}

// ProjectSource lists a user's projects.
type ProjectSource interface {
	List(ctx context.Context, userID, orderBy string, descending bool) ([]project.Project, error)
}

// InvoiceSource lists a user's invoices.
type InvoiceSource interface {
	List(ctx context.Context, userID, orderBy string, descending bool) ([]invoice.Invoice, error)
}

// VendorSource lists a user's vendors.
type VendorSource interface {
	List(ctx context.Context, userID string) ([]vendor.Vendor, error)
}

// ProfileSource fetches a user's profile.
type ProfileSource interface {
	GetByUser(ctx context.Context, userID string) (profile.Profile, error)
}

// Service builds and caches workspace snapshots.
type Service struct {
	client   *redis.Client
	ttl      time.Duration
	projects ProjectSource
	invoices InvoiceSource
	vendors  VendorSource
	profiles ProfileSource
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(client *redis.Client, ttl time.Duration, projects ProjectSource, invoices InvoiceSource, vendors VendorSource, profiles ProfileSource, logger *slog.Logger) *Service {
	return &Service{
		client:   client,
		ttl:      ttl,
		projects: projects,
		invoices: invoices,
		vendors:  vendors,
		profiles: profiles,
		logger:   logger,
	}
}

// Get returns the cached snapshot, rebuilding it on a miss.
func (s *Service) Get(ctx context.Context, userID string) (Snapshot, error) {
	if s.client != nil {
		payload, err := s.client.Get(ctx, snapshotKey(userID)).Bytes()
		if err == nil {
			var snap Snapshot
			if err := json.Unmarshal(payload, &snap); err == nil {
				return snap, nil
			}
			// Corrupt entry, rebuild below.
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("snapshot cache read failed", slog.Any("error", err))
		}
	}
	return s.Refresh(ctx, userID)
}

// Refresh rebuilds the snapshot from the stores and caches it.
func (s *Service) Refresh(ctx context.Context, userID string) (Snapshot, error) {
	snap := Snapshot{RefreshedAt: time.Now().UTC()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		projects, err := s.projects.List(ctx, userID, "", false)
		if err != nil {
			return err
		}
		snap.Projects = projects
		return nil
	})
	g.Go(func() error {
		invoices, err := s.invoices.List(ctx, userID, "", false)
		if err != nil {
			return err
		}
		// The backend-only cancelled status reads back as pending.
		views := make([]invoice.Invoice, len(invoices))
		for i, inv := range invoices {
			inv.Status = inv.DisplayStatus()
			views[i] = inv
		}
		snap.Invoices = views
		return nil
	})
	g.Go(func() error {
		vendors, err := s.vendors.List(ctx, userID)
		if err != nil {
			return err
		}
		snap.Vendors = vendors
		return nil
	})
	g.Go(func() error {
		p, err := s.profiles.GetByUser(ctx, userID)
		if err != nil {
			return err
		}
		snap.Profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	if s.client != nil {
		raw, err := json.Marshal(snap)
		if err != nil {
			return Snapshot{}, err
		}
		if err := s.client.Set(ctx, snapshotKey(userID), raw, s.ttl).Err(); err != nil {
			s.logger.Warn("snapshot cache write failed", slog.Any("error", err))
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot so the next read rebuilds it.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if s.client == nil || userID == "" {
		return
	}
	if err := s.client.Del(ctx, snapshotKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("snapshot invalidate failed", slog.Any("error", err))
	}
}

func snapshotKey(userID string) string {
	return "workspace:snapshot:" + userID
}
