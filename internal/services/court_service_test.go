package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/repo"
)

// ----- Fake repo -----

type fakeCourtRepo struct {
	courts    map[int64]domain.Court
	createErr error
	deleted   []int64
}

func newFakeCourtRepo() *fakeCourtRepo {
	return &fakeCourtRepo{courts: map[int64]domain.Court{}}
}

func (r *fakeCourtRepo) CreateCourt(_ context.Context, _ *gorm.DB, c *domain.Court) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.courts[c.ID] = *c
	return nil
}

func (r *fakeCourtRepo) GetCourt(_ context.Context, _ *gorm.DB, id int64) (*domain.Court, error) {
	c, ok := r.courts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeCourtRepo) CourtAt(_ context.Context, _ *gorm.DB, guildID, channelID int64) (bool, error) {
	for _, c := range r.courts {
		if c.GuildID == guildID && c.ChannelID == channelID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCourtRepo) ListCourts(_ context.Context, _ *gorm.DB) ([]domain.Court, error) {
	out := make([]domain.Court, 0, len(r.courts))
	for _, c := range r.courts {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCourtRepo) DeleteCourt(_ context.Context, _ *gorm.DB, id int64) error {
	if _, ok := r.courts[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.courts, id)
	r.deleted = append(r.deleted, id)
	return nil
}

// ----- Tests -----

func TestCourtService_StartValidatesAndDefaultsID(t *testing.T) {
	db := newSvcDB(t)
	r := newFakeCourtRepo()
	s := NewCourtService(db, r)
	ctx := context.Background()

	if _, err := s.Start(ctx, StartCourt{GuildID: 1, ChannelID: 2, Name: "   "}); !errors.Is(err, ErrInvalidCourt) {
		t.Fatalf("blank name: want ErrInvalidCourt, got %v", err)
	}
	if _, err := s.Start(ctx, StartCourt{ChannelID: 2, Name: "x"}); !errors.Is(err, ErrInvalidCourt) {
		t.Fatalf("no guild: want ErrInvalidCourt, got %v", err)
	}

	c, err := s.Start(ctx, StartCourt{GuildID: 1, ChannelID: 77, Name: "  Supreme   Court "})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if c.ID != 77 || c.Name != "Supreme Court" {
		t.Fatalf("court=%+v", c)
	}
	if _, err := s.Start(ctx, StartCourt{ID: 78, GuildID: 1, ChannelID: 77, Name: "Again"}); !errors.Is(err, ErrCourtExists) {
		t.Fatalf("same venue: want ErrCourtExists, got %v", err)
	}
}

func TestCourtService_StopAndList(t *testing.T) {
	db := newSvcDB(t)
	r := newFakeCourtRepo()
	s := NewCourtService(db, r)
	ctx := context.Background()

	if _, err := s.Start(ctx, StartCourt{GuildID: 1, ChannelID: 5, Name: "A"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	list, _ := s.List(ctx)
	if len(list) != 1 {
		t.Fatalf("list len=%d", len(list))
	}
	if err := s.Stop(ctx, 5); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(ctx, 5); !errors.Is(err, ErrCourtNotFound) {
		t.Fatalf("second stop: want ErrCourtNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, 5); !errors.Is(err, ErrCourtNotFound) {
		t.Fatalf("get stopped: want ErrCourtNotFound, got %v", err)
	}
}

func TestCourtService_StopKeepsCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fileCase(t, testCase)

	if err := f.courts.Stop(ctx, testCourt); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if c := f.mustCase(t, testCase); c.CourtID != testCourt {
		t.Fatalf("court_id=%d", c.CourtID)
	}
}

func TestCourtService_CreateErrorPropagates(t *testing.T) {
	db := newSvcDB(t)
	r := newFakeCourtRepo()
	r.createErr = errors.New("disk full")
	s := NewCourtService(db, r)
	if _, err := s.Start(context.Background(), StartCourt{GuildID: 1, ChannelID: 2, Name: "x"}); err == nil || err.Error() != "disk full" {
		t.Fatalf("want disk full, got %v", err)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := map[string]string{
		"  High   Court ":      "High Court",
		"Small\tClaims\nCourt": "Small Claims Court",
		"":                     "",
	}
	for in, want := range tests {
		if got := normalizeText(in); got != want {
			t.Fatalf("normalizeText(%q) = %q; want %q", in, got, want)
		}
	}
}
