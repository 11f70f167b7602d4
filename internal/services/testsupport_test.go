package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/verisona-ai/analysis-service/internal/analyzer"
	"github.com/verisona-ai/analysis-service/internal/events"
	"github.com/verisona-ai/analysis-service/internal/mapper"
	"github.com/verisona-ai/analysis-service/internal/models"
	"github.com/verisona-ai/analysis-service/internal/repositories"
	"github.com/verisona-ai/analysis-service/internal/utils"
	"github.com/verisona-ai/analysis-service/internal/validator"
	"gorm.io/datatypes"
)

// ===== IN-MEMORY REPOSITORIES =====

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[string]*models.Report
	order   []string
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[string]*models.Report)}
}

func (f *fakeReportRepo) Create(ctx context.Context, report *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.reports {
		if existing.SessionID == report.SessionID &&
			existing.Type == report.Type &&
			existing.Status != models.ReportFailed {
			return repositories.ErrDuplicateReport
		}
	}

	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	clone := *report
	f.reports[report.ID] = &clone
	f.order = append(f.order, report.ID)
	return nil
}

func (f *fakeReportRepo) GetByID(ctx context.Context, id string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	report, ok := f.reports[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *report
	return &clone, nil
}

func (f *fakeReportRepo) GetBySessionAndType(ctx context.Context, sessionID string, analysisType models.AnalysisType) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Latest wins, matching the DESC ordering of the real store.
	for i := len(f.order) - 1; i >= 0; i-- {
		report := f.reports[f.order[i]]
		if report.SessionID == sessionID && report.Type == analysisType {
			clone := *report
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeReportRepo) Update(ctx context.Context, report *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.reports[report.ID]; !ok {
		return repositories.ErrNotFound
	}
	report.UpdatedAt = time.Now()
	clone := *report
	f.reports[report.ID] = &clone
	return nil
}

func (f *fakeReportRepo) ListBySessionIDs(ctx context.Context, sessionIDs []string) ([]*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wanted := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}

	var out []*models.Report
	for _, id := range f.order {
		report := f.reports[id]
		if wanted[report.SessionID] {
			clone := *report
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) ListByUser(ctx context.Context, userID uint, filters repositories.ReportFilters) ([]*models.Report, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Report
	for _, id := range f.order {
		report := f.reports[id]
		if report.UserID != userID {
			continue
		}
		if filters.Status != nil && report.Status != *filters.Status {
			continue
		}
		if filters.Type != nil && report.Type != *filters.Type {
			continue
		}
		clone := *report
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (f *fakeReportRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

type fakeSessionRepo struct {
	sessions map[string]*models.Session
	answers  map[string][]models.SessionAnswer
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]*models.Session),
		answers:  make(map[string][]models.SessionAnswer),
	}
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, sessionID string, userID uint) (*models.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (f *fakeSessionRepo) GetAnswers(ctx context.Context, sessionID string) ([]models.SessionAnswer, error) {
	return f.answers[sessionID], nil
}

type fakeUserRepo struct {
	users map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User)}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// ===== FAKE ANALYZER =====

type fakeAnalyzer struct {
	mu       sync.Mutex
	result   *analyzer.Result
	err      error
	progress []int
	calls    int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req *mapper.AnalysisRequest) (*analyzer.Result, error) {
	return f.AnalyzeWithProgress(ctx, req, nil)
}

func (f *fakeAnalyzer) AnalyzeWithProgress(ctx context.Context, req *mapper.AnalysisRequest, onProgress analyzer.ProgressFunc) (*analyzer.Result, error) {
	f.mu.Lock()
	f.calls++
	progress := f.progress
	result := f.result
	err := f.err
	f.mu.Unlock()

	if onProgress != nil {
		for _, p := range progress {
			onProgress("processing", p, "working")
		}
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &analyzer.Result{Analysis: "## Analysis Results\n\nDefault output."}
	}
	return result, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// cancelAwareAnalyzer honors context cancellation the way the real HTTP
// client does. The optional gates let a test cancel the request while a
// call is in flight.
type cancelAwareAnalyzer struct {
	started chan struct{}
	release chan struct{}
}

func (a *cancelAwareAnalyzer) Analyze(ctx context.Context, req *mapper.AnalysisRequest) (*analyzer.Result, error) {
	return a.AnalyzeWithProgress(ctx, req, nil)
}

func (a *cancelAwareAnalyzer) AnalyzeWithProgress(ctx context.Context, req *mapper.AnalysisRequest, onProgress analyzer.ProgressFunc) (*analyzer.Result, error) {
	if a.started != nil {
		close(a.started)
	}
	if a.release != nil {
		<-a.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &analyzer.Result{Analysis: "## Analysis Results\n\nDetached run output."}, nil
}

// ===== FAKE CACHE =====

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = payload
	return nil
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	payload, ok := f.entries[key]
	f.mu.Unlock()
	if !ok {
		return repositories.ErrNotFound
	}
	return json.Unmarshal(payload, dest)
}

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok
}

// ===== RUNNERS =====

// syncRunner executes tasks inline so tests observe final state directly.
type syncRunner struct{}

func (syncRunner) Submit(task func(ctx context.Context)) error {
	task(context.Background())
	return nil
}

// saturatedRunner rejects every submission.
type saturatedRunner struct{}

func (saturatedRunner) Submit(task func(ctx context.Context)) error {
	return context.DeadlineExceeded
}

// ===== FIXTURE BUILDER =====

type serviceFixture struct {
	service   *AnalysisService
	reports   *fakeReportRepo
	sessions  *fakeSessionRepo
	users     *fakeUserRepo
	analyzer  *fakeAnalyzer
	cache     *fakeCache
	publisher *events.MockEventPublisher
}

func newServiceFixture(runner TaskRunner) *serviceFixture {
	f := &serviceFixture{
		reports:   newFakeReportRepo(),
		sessions:  newFakeSessionRepo(),
		users:     newFakeUserRepo(),
		analyzer:  &fakeAnalyzer{},
		cache:     newFakeCache(),
		publisher: events.NewMockEventPublisher(),
	}
	f.service = NewAnalysisService(
		f.reports,
		f.sessions,
		f.users,
		mapper.New(validator.NewResponseValidator()),
		f.analyzer,
		f.cache,
		f.publisher,
		runner,
		utils.NewDevelopmentLogger(),
	)
	return f
}

// withAnalyzer rebuilds the service around the same stores with a different
// analyzer.
func (f *serviceFixture) withAnalyzer(a Analyzer) {
	f.service = NewAnalysisService(
		f.reports,
		f.sessions,
		f.users,
		mapper.New(validator.NewResponseValidator()),
		a,
		f.cache,
		f.publisher,
		syncRunner{},
		utils.NewDevelopmentLogger(),
	)
}

const (
	testUserID    = uint(7)
	testSessionID = "sess-0001"
)

func (f *serviceFixture) seedSession(sessionID string, status models.SessionStatus) {
	name := "Jamie"
	f.users.users[testUserID] = &models.User{ID: testUserID, Email: "jamie@example.com", FirstName: &name}
	f.sessions.sessions[sessionID] = &models.Session{
		SessionID: sessionID,
		UserID:    testUserID,
		Status:    status,
	}
	f.sessions.answers[sessionID] = []models.SessionAnswer{
		{
			Question: models.Question{ID: 1, Text: "What drives you?", Type: models.QuestionTextarea, Category: "values"},
			Answer: models.Answer{
				SessionID:  sessionID,
				QuestionID: 1,
				RawValue:   datatypes.JSON(`"I care deeply about service and helping my community grow stronger."`),
			},
		},
	}
}
