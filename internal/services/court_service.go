// Package services – CourtService
//
// A court is a venue (a channel in a community) that hosts cases. Starting a
// court registers the venue; stopping it removes the court row while the
// cases it hosted keep their court_id as history.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/repo"
)

// CourtRepo defines the repository contract required by CourtService.
type CourtRepo interface {
	// CreateCourt inserts a new court row.
	CreateCourt(ctx context.Context, db *gorm.DB, c *domain.Court) error

	// GetCourt fetches a court by id; (nil, nil) when missing.
	GetCourt(ctx context.Context, db *gorm.DB, id int64) (*domain.Court, error)

	// CourtAt reports whether a court already sits in the venue.
	CourtAt(ctx context.Context, db *gorm.DB, guildID, channelID int64) (bool, error)

	// ListCourts returns every court.
	ListCourts(ctx context.Context, db *gorm.DB) ([]domain.Court, error)

	// DeleteCourt removes a court row; repo.ErrNotFound when missing.
	DeleteCourt(ctx context.Context, db *gorm.DB, id int64) error
}

// StartCourt describes a new venue. ID defaults to ChannelID.
type StartCourt struct {
	ID          int64  `json:"id"`
	GuildID     int64  `json:"guild_id"`
	ChannelID   int64  `json:"channel_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CourtService registers and removes court venues.
type CourtService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the court repository used by this service.
	Repo CourtRepo
}

// NewCourtService constructs a CourtService.
func NewCourtService(db *gorm.DB, r CourtRepo) *CourtService {
	return &CourtService{DB: db, Repo: r}
}

// Start registers a court. A second court in the same guild channel is
// rejected with ErrCourtExists.
func (s *CourtService) Start(ctx context.Context, in StartCourt) (*domain.Court, error) {
	ctx, span := otel.Tracer("services/CourtService").Start(ctx, "Start",
		trace.WithAttributes(
			attribute.Int64("guild.id", in.GuildID),
			attribute.Int64("channel.id", in.ChannelID),
		),
	)
	defer span.End()

	in.Name = normalizeText(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" || in.GuildID <= 0 || in.ChannelID <= 0 {
		return nil, ErrInvalidCourt
	}
	if in.ID <= 0 {
		in.ID = in.ChannelID
	}

	court := &domain.Court{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		ChannelID:   in.ChannelID,
		GuildID:     in.GuildID,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.Repo.CourtAt(ctx, tx, in.GuildID, in.ChannelID)
		if err != nil {
			return err
		}
		if taken {
			return ErrCourtExists
		}
		existing, err := s.Repo.GetCourt(ctx, tx, in.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrCourtExists
		}
		return s.Repo.CreateCourt(ctx, tx, court)
	})
	if err != nil {
		return nil, err
	}
	return court, nil
}

// Stop removes a court.
func (s *CourtService) Stop(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("services/CourtService").Start(ctx, "Stop",
		trace.WithAttributes(attribute.Int64("court.id", id)),
	)
	defer span.End()

	if err := s.Repo.DeleteCourt(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCourtNotFound
		}
		return err
	}
	return nil
}

// List returns all courts.
func (s *CourtService) List(ctx context.Context) ([]domain.Court, error) {
	return s.Repo.ListCourts(ctx, s.DB)
}

// Get returns one court or ErrCourtNotFound.
func (s *CourtService) Get(ctx context.Context, id int64) (*domain.Court, error) {
	c, err := s.Repo.GetCourt(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCourtNotFound
	}
	return c, nil
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// normalizeText trims whitespace and collapses runs of it to one space.
func normalizeText(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}
