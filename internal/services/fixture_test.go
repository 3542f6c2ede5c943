package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/goleak"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-court-backend/internal/agent"
	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/messenger"
	"github.com/tbourn/go-court-backend/internal/repo"
)

func TestMain(m *testing.M) {
	// The genai client's auth dependencies start an opencensus view worker
	// at init that lives for the whole process.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// ---------- db ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Shared-cache memory databases fail writers with SQLITE_LOCKED rather
	// than waiting, so tests run on one connection.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ---------- fakes ----------

type step struct {
	reply agent.Reply
	err   error
	// block waits for the context to end and returns its error.
	block bool
	// before runs just before the step answers.
	before func()
}

// scriptedAgent plays steps in order; once exhausted it answers with a
// fixed line.
type scriptedAgent struct {
	mu    sync.Mutex
	steps []step
	reqs  []agent.Request
}

func (a *scriptedAgent) push(s ...step) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.steps = append(a.steps, s...)
}

func (a *scriptedAgent) requests() []agent.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]agent.Request(nil), a.reqs...)
}

func (a *scriptedAgent) Generate(ctx context.Context, req agent.Request) (agent.Reply, error) {
	a.mu.Lock()
	a.reqs = append(a.reqs, req)
	var s step
	if len(a.steps) > 0 {
		s = a.steps[0]
		a.steps = a.steps[1:]
	} else {
		s = step{reply: agent.Reply{Text: "Order in the court."}}
	}
	a.mu.Unlock()

	if s.before != nil {
		s.before()
	}
	if s.block {
		<-ctx.Done()
		return agent.Reply{}, ctx.Err()
	}
	return s.reply, s.err
}

// scriptedSummarizer returns "summary N" for the Nth call unless err is
// set.
type scriptedSummarizer struct {
	mu    sync.Mutex
	err   error
	calls int
	last  []string
}

func (s *scriptedSummarizer) Summarize(_ context.Context, transcript []string, current string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = append([]string(nil), transcript...)
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("summary %d", s.calls), nil
}

func (s *scriptedSummarizer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ---------- fixture ----------

type fixture struct {
	db      *gorm.DB
	rec     *messenger.Recorder
	machine *StateMachine
	logs    *LogManager
	headers *HeaderReconciler
	sums    *SummaryScheduler
	disp    *Dispatcher
	cases   *CaseService
	courts  *CourtService
	orch    *Orchestrator
	agent   *scriptedAgent
	summer  *scriptedSummarizer
}

type courtRepoFuncs struct{}

func (courtRepoFuncs) CreateCourt(ctx context.Context, db *gorm.DB, c *domain.Court) error {
	return repo.CreateCourt(ctx, db, c)
}
func (courtRepoFuncs) GetCourt(ctx context.Context, db *gorm.DB, id int64) (*domain.Court, error) {
	return repo.GetCourt(ctx, db, id)
}
func (courtRepoFuncs) CourtAt(ctx context.Context, db *gorm.DB, guildID, channelID int64) (bool, error) {
	return repo.CourtAt(ctx, db, guildID, channelID)
}
func (courtRepoFuncs) ListCourts(ctx context.Context, db *gorm.DB) ([]domain.Court, error) {
	return repo.ListCourts(ctx, db)
}
func (courtRepoFuncs) DeleteCourt(ctx context.Context, db *gorm.DB, id int64) error {
	return repo.DeleteCourt(ctx, db, id)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newSvcDB(t)
	f := &fixture{
		db:     db,
		rec:    messenger.NewRecorder(9000),
		agent:  &scriptedAgent{},
		summer: &scriptedSummarizer{},
	}
	f.machine = NewStateMachine(db)
	f.logs = &LogManager{DB: db}
	f.headers = &HeaderReconciler{DB: db, Messenger: f.rec}
	f.sums = &SummaryScheduler{DB: db, Logs: f.logs, Summarizer: f.summer}
	f.disp = &Dispatcher{DB: db, Machine: f.machine, Headers: f.headers, Messenger: f.rec}
	locks := NewCaseLocks()
	f.cases = &CaseService{
		DB:         db,
		Machine:    f.machine,
		Dispatcher: f.disp,
		Headers:    f.headers,
		Logs:       f.logs,
		Summaries:  f.sums,
		Messenger:  f.rec,
		Locks:      locks,
	}
	f.courts = NewCourtService(db, courtRepoFuncs{})
	f.orch = &Orchestrator{
		DB:           db,
		Locks:        locks,
		Logs:         f.logs,
		Context:      &ContextBuilder{Headers: f.headers, Logs: f.logs},
		Agent:        f.agent,
		Dispatcher:   f.disp,
		Summaries:    f.sums,
		Headers:      f.headers,
		Messenger:    f.rec,
		SystemPrompt: agent.JudgePrompt,
		Timeout:      time.Second,
		JudgeID:      1,
	}
	return f
}

const (
	testCourt   = int64(500)
	testCase    = int64(1000)
	testAccuser = int64(100)
	testAccused = int64(200)
)

// fileCase starts the test court (once) and files the standard case.
func (f *fixture) fileCase(t *testing.T, caseID int64) *domain.Case {
	t.Helper()
	ctx := context.Background()
	if c, _ := repo.GetCourt(ctx, f.db, testCourt); c == nil {
		if _, err := f.courts.Start(ctx, StartCourt{ID: testCourt, GuildID: 1, ChannelID: testCourt, Name: "High Court"}); err != nil {
			t.Fatalf("start court: %v", err)
		}
	}
	c, err := f.cases.File(ctx, FileCase{
		CaseID:  caseID,
		CourtID: testCourt,
		Accuser: Party{ID: testAccuser, Name: "alice"},
		Accused: []Party{{ID: testAccused, Name: "bob"}},
		Reason:  "loud typing",
		Type:    "civil",
	})
	if err != nil {
		t.Fatalf("file case: %v", err)
	}
	return c
}

func (f *fixture) mustCase(t *testing.T, id int64) *domain.Case {
	t.Helper()
	c, err := repo.GetCase(context.Background(), f.db, id)
	if err != nil || c == nil {
		t.Fatalf("get case %d: %v (nil=%v)", id, err, c == nil)
	}
	return c
}

// appendTurns logs n plain dialogue entries starting at message id from.
func (f *fixture) appendTurns(t *testing.T, caseID int64, from int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		e := &domain.LogEntry{
			CaseID:    caseID,
			AuthorID:  testAccuser,
			Speaker:   "alice",
			Content:   fmt.Sprintf("statement %d", i),
			MessageID: from + int64(i),
		}
		if err := f.logs.Append(context.Background(), e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
}
