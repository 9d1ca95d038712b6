package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arturoeanton/commitlens/internal/domain"
)

// mockGenerator implements port.Generator with per-method stubs and call
// counters.
type mockGenerator struct {
	mu sync.Mutex

	analyzeFn    func(commit domain.Commit) ([]domain.SubCommitAnalysis, error)
	analyzeCalls int

	attributeFn    func(analysis domain.SubCommitAnalysis, files []domain.File) ([]string, error)
	attributeCalls int

	answerFn    func(query string, sources []domain.SubCommitAnalysis) (string, error)
	answerCalls int

	epicFn    func(subcommits []domain.SubCommitAnalysis) (string, error)
	epicCalls int
}

func (m *mockGenerator) ModelName() string { return "mock" }

func (m *mockGenerator) GenerateAnalyses(_ context.Context, commit domain.Commit) ([]domain.SubCommitAnalysis, error) {
	m.mu.Lock()
	m.analyzeCalls++
	fn := m.analyzeFn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(commit)
}

func (m *mockGenerator) AttributeFiles(_ context.Context, analysis domain.SubCommitAnalysis, files []domain.File) ([]string, error) {
	m.mu.Lock()
	m.attributeCalls++
	fn := m.attributeFn
	m.mu.Unlock()
	if fn == nil {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Filename)
		}
		return names, nil
	}
	return fn(analysis, files)
}

func (m *mockGenerator) GenerateAnswer(_ context.Context, query string, sources []domain.SubCommitAnalysis) (string, error) {
	m.mu.Lock()
	m.answerCalls++
	fn := m.answerFn
	m.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(query, sources)
}

func (m *mockGenerator) GenerateEpicTitle(_ context.Context, subcommits []domain.SubCommitAnalysis) (string, error) {
	m.mu.Lock()
	m.epicCalls++
	fn := m.epicFn
	m.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(subcommits)
}

// mockStore implements port.AnalysisStore with per-method stubs.
type mockStore struct {
	createRepositoryFn func(repo *domain.Repository) error
	getRepositoryFn    func(url string) (*domain.Repository, error)
	insertCommitFn     func(commit *domain.Commit) error
	listCommitSHAsFn   func(repoID string) ([]string, error)
	insertAnalysesFn   func(analyses []domain.SubCommitAnalysis) (int, error)
	listAnalysesFn     func(repoID string) ([]domain.SubCommitAnalysis, error)
	getAnalysisFn      func(id int64) (*domain.SubCommitAnalysis, error)
	setEpicFn          func(ids []int64, epic string) error
	insertRunFn        func(run *domain.Run) error

	insertedCommits []domain.Commit
	insertedRuns    []domain.Run
}

func (m *mockStore) CreateRepository(_ context.Context, repo *domain.Repository) error {
	if m.createRepositoryFn == nil {
		return nil
	}
	return m.createRepositoryFn(repo)
}

func (m *mockStore) GetRepositoryByURL(_ context.Context, url string) (*domain.Repository, error) {
	if m.getRepositoryFn == nil {
		return nil, nil
	}
	return m.getRepositoryFn(url)
}

func (m *mockStore) InsertCommit(_ context.Context, commit *domain.Commit) error {
	var err error
	if m.insertCommitFn != nil {
		err = m.insertCommitFn(commit)
	}
	if err == nil {
		m.insertedCommits = append(m.insertedCommits, *commit)
	}
	return err
}

func (m *mockStore) ListCommitSHAs(_ context.Context, repoID string) ([]string, error) {
	if m.listCommitSHAsFn == nil {
		return nil, nil
	}
	return m.listCommitSHAsFn(repoID)
}

func (m *mockStore) InsertAnalyses(_ context.Context, analyses []domain.SubCommitAnalysis) (int, error) {
	if m.insertAnalysesFn == nil {
		return len(analyses), nil
	}
	return m.insertAnalysesFn(analyses)
}

func (m *mockStore) ListAnalysesByRepo(_ context.Context, repoID string) ([]domain.SubCommitAnalysis, error) {
	if m.listAnalysesFn == nil {
		return nil, nil
	}
	return m.listAnalysesFn(repoID)
}

func (m *mockStore) GetAnalysisByID(_ context.Context, id int64) (*domain.SubCommitAnalysis, error) {
	if m.getAnalysisFn == nil {
		return &domain.SubCommitAnalysis{ID: id}, nil
	}
	return m.getAnalysisFn(id)
}

func (m *mockStore) SetAnalysisEpic(_ context.Context, ids []int64, epic string) error {
	if m.setEpicFn == nil {
		return nil
	}
	return m.setEpicFn(ids, epic)
}

func (m *mockStore) InsertRun(_ context.Context, run *domain.Run) error {
	var err error
	if m.insertRunFn != nil {
		err = m.insertRunFn(run)
	}
	if err == nil {
		m.insertedRuns = append(m.insertedRuns, *run)
	}
	return err
}

// mockSCM implements port.SCMProvider with per-method stubs and call counters.
type mockSCM struct {
	getRepositoryFn  func(repoURL string) (*domain.Repository, error)
	listCommitsFn    func(repoURL, branch, path string) ([]domain.Commit, error)
	listCommitsCalls atomic.Int64
	listSHAsFn       func(repoURL, branch, path string) ([]string, error)
	getCommitFn      func(repoURL, sha string) (*domain.Commit, error)
	getCommitCalls   atomic.Int64
}

func (m *mockSCM) GetRepository(_ context.Context, repoURL, _ string) (*domain.Repository, error) {
	if m.getRepositoryFn == nil {
		return &domain.Repository{ID: "1", Name: "repo", URL: repoURL}, nil
	}
	return m.getRepositoryFn(repoURL)
}

func (m *mockSCM) ListCommits(_ context.Context, repoURL, _, branch, path string) ([]domain.Commit, error) {
	m.listCommitsCalls.Add(1)
	if m.listCommitsFn == nil {
		return nil, nil
	}
	return m.listCommitsFn(repoURL, branch, path)
}

func (m *mockSCM) ListCommitSHAs(_ context.Context, repoURL, _, branch, path string) ([]string, error) {
	if m.listSHAsFn == nil {
		return nil, nil
	}
	return m.listSHAsFn(repoURL, branch, path)
}

func (m *mockSCM) GetCommit(_ context.Context, repoURL, _, sha string) (*domain.Commit, error) {
	m.getCommitCalls.Add(1)
	if m.getCommitFn == nil {
		return &domain.Commit{SHA: sha}, nil
	}
	return m.getCommitFn(repoURL, sha)
}

// mockEmbedder implements port.Embedder.
type mockEmbedder struct {
	mu      sync.Mutex
	embedFn func(text string) ([]float32, error)
	calls   int
	texts   []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.texts = append(m.texts, text)
	fn := m.embedFn
	m.mu.Unlock()
	if fn == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return fn(text)
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// mockIndex implements port.VectorIndex, recording upserted documents.
type mockIndex struct {
	mu         sync.Mutex
	upsertFn   func(collection string, docs []domain.Document) error
	kNearestFn func(collection string, vector []float32, k int) ([]domain.Neighbor, error)
	upserted   map[string][]domain.Document
}

func (m *mockIndex) Upsert(_ context.Context, collection string, docs []domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertFn != nil {
		if err := m.upsertFn(collection, docs); err != nil {
			return err
		}
	}
	if m.upserted == nil {
		m.upserted = make(map[string][]domain.Document)
	}
	m.upserted[collection] = append(m.upserted[collection], docs...)
	return nil
}

func (m *mockIndex) KNearest(_ context.Context, collection string, vector []float32, k int) ([]domain.Neighbor, error) {
	if m.kNearestFn == nil {
		return nil, nil
	}
	return m.kNearestFn(collection, vector, k)
}
