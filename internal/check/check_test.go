package check

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/factchecker/factcheckit/internal/config"
	"github.com/factchecker/factcheckit/internal/llm"
	"github.com/factchecker/factcheckit/internal/models"
	"github.com/factchecker/factcheckit/internal/normalize"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	text     string
	tool     llm.ToolResult
	toolErr  error
	err      error
	calls    int
	lastUser string
	lastTool llm.ToolSpec
}

func (p *fakeProvider) CompleteWithSystem(ctx context.Context, system, user string, opts llm.CompletionOptions) (string, error) {
	p.calls++
	p.lastUser = user
	return p.text, p.err
}

func (p *fakeProvider) CompleteTool(ctx context.Context, system, user string, tool llm.ToolSpec, opts llm.CompletionOptions) (llm.ToolResult, error) {
	p.calls++
	p.lastUser = user
	p.lastTool = tool
	if p.err != nil {
		return llm.ToolResult{}, p.err
	}
	return p.tool, p.toolErr
}

func (p *fakeProvider) Name() string { return "fake" }

type fakeStore struct {
	mu      sync.Mutex
	saved   []*models.FactCheck
	saveErr error
}

func (s *fakeStore) SaveFactCheck(ctx context.Context, fc *models.FactCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, fc)
	return nil
}

func (s *fakeStore) GetFactCheck(ctx context.Context, shortID string) (*models.FactCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fc := range s.saved {
		if fc.ShortID == shortID {
			return fc, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetFactCheckByClaimHash(ctx context.Context, hash string) (*models.FactCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].ClaimHash == hash {
			return s.saved[i], nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListFactChecks(ctx context.Context, limit, offset int) ([]*models.FactCheck, error) {
	return s.saved, nil
}

func (s *fakeStore) LogRequest(ctx context.Context, log *models.AuditLog) error { return nil }

func (s *fakeStore) GetAuditLogs(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (s *fakeStore) Close() error   { return nil }
func (s *fakeStore) Migrate() error { return nil }

type fakeFinder struct {
	ref      *models.Source
	warnings []models.Warning
}

func (f *fakeFinder) Find(ctx context.Context, claim string) (*models.Source, []models.Warning) {
	return f.ref, f.warnings
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "sk-test"
	return cfg
}

func TestCheckMarkdownAnswer(t *testing.T) {
	provider := &fakeProvider{text: "The moon is rock. It formed 4.5 billion years ago. Cheese is dairy. Extra.\n\nSources:\n- [NASA](https://nasa.gov/moon)"}
	store := &fakeStore{}
	svc := NewService(testConfig(), provider, store, nil)

	out, err := svc.Check(context.Background(), "  The moon is made of cheese  ")
	require.NoError(t, err)

	fc := out.FactCheck
	assert.Equal(t, "The moon is made of cheese", fc.Claim)
	assert.Equal(t, ClaimHash("The moon is made of cheese"), fc.ClaimHash)
	assert.Len(t, fc.ShortID, 10)
	assert.NotEmpty(t, fc.ID)
	assert.Equal(t, "MARKDOWN_DIVIDED", fc.Format)
	assert.Empty(t, fc.Flags)
	assert.Equal(t, models.VerdictCannotVerify, fc.Result.Verdict)
	assert.Equal(t, "The moon is rock. It formed 4.5 billion years ago. Cheese is dairy.", fc.Result.Explanation)
	assert.Equal(t, []models.Source{{Title: "NASA", URL: "https://nasa.gov/moon"}}, fc.Result.Sources)
	assert.False(t, out.Cached)

	assert.Contains(t, provider.lastUser, `"The moon is made of cheese"`)
	assert.NotContains(t, provider.lastUser, "{{claim}}")
	require.Len(t, store.saved, 1)
	assert.Same(t, fc, store.saved[0])
}

func TestCheckUsesReferenceAsFallback(t *testing.T) {
	provider := &fakeProvider{text: "It is false."}
	finder := &fakeFinder{
		ref:      &models.Source{Title: "Moon - Wikipedia", URL: "https://en.wikipedia.org/wiki/Moon"},
		warnings: []models.Warning{{Source: "DuckDuckGo", Message: "status 503"}},
	}
	svc := NewService(testConfig(), provider, &fakeStore{}, finder)

	out, err := svc.Check(context.Background(), "The moon is made of cheese")
	require.NoError(t, err)

	assert.Equal(t, []models.Source{*finder.ref}, out.FactCheck.Result.Sources)
	assert.Equal(t, finder.ref.URL, out.FactCheck.ReferenceURL)
	assert.True(t, out.Report.Has(normalize.FlagSourcesEmpty))
	assert.Contains(t, out.FactCheck.Flags, "SourcesEmpty")
	assert.Equal(t, finder.warnings, out.Warnings)
}

func TestCheckToolMode(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.UseTools = true
	provider := &fakeProvider{tool: llm.ToolResult{
		Arguments: `{"verdict":"FALSE","explanation":"No.","sources":[{"title":"NASA","url":"https://nasa.gov"}]}`,
	}}
	svc := NewService(cfg, provider, &fakeStore{}, nil)

	out, err := svc.Check(context.Background(), "The moon is made of cheese")
	require.NoError(t, err)

	assert.Equal(t, "report_fact_check", provider.lastTool.Name)
	schema, ok := provider.lastTool.Parameters.(jsonschema.Definition)
	require.True(t, ok)
	assert.Equal(t, []string{"TRUE", "FALSE", "MISLEADING", "CANNOT_VERIFY"}, schema.Properties["verdict"].Enum)

	assert.Equal(t, "TOOL_JSON", out.FactCheck.Format)
	assert.Equal(t, models.VerdictFalse, out.FactCheck.Result.Verdict)
	assert.Equal(t, "❌ No. - via Fact-CheckIt", out.FactCheck.Result.FormattedResponse)
}

func TestCheckToolIgnored(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.UseTools = true
	provider := &fakeProvider{
		tool:    llm.ToolResult{Content: "It is false.\nSources:\n- [NASA](https://nasa.gov)"},
		toolErr: llm.ErrNoToolCall,
	}
	svc := NewService(cfg, provider, &fakeStore{}, nil)

	out, err := svc.Check(context.Background(), "The moon is made of cheese")
	require.NoError(t, err)
	assert.Equal(t, "MARKDOWN_DIVIDED", out.FactCheck.Format)
	assert.Equal(t, "NASA", out.FactCheck.Result.Sources[0].Title)
}

func TestCheckValidation(t *testing.T) {
	provider := &fakeProvider{text: "x"}
	svc := NewService(testConfig(), provider, &fakeStore{}, nil)

	_, err := svc.Check(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrClaimRequired)

	_, err = svc.Check(context.Background(), strings.Repeat("a", 1001))
	assert.ErrorIs(t, err, ErrClaimTooLong)

	// Length counts characters, not bytes.
	_, err = svc.Check(context.Background(), strings.Repeat("é", 1000))
	assert.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
}

func TestCheckModelFailure(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(testConfig(), &fakeProvider{err: errors.New("rate limited")}, store, &fakeFinder{})

	_, err := svc.Check(context.Background(), "The moon is made of cheese")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Empty(t, store.saved)
}

func TestCheckPersistenceFailureIsNotFatal(t *testing.T) {
	svc := NewService(testConfig(), &fakeProvider{text: "No."}, &fakeStore{saveErr: errors.New("disk full")}, nil)

	out, err := svc.Check(context.Background(), "The moon is made of cheese")
	require.NoError(t, err)
	assert.Equal(t, "No.", out.FactCheck.Result.Explanation)
}

func TestCheckServesCachedResult(t *testing.T) {
	provider := &fakeProvider{text: "No."}
	svc := NewService(testConfig(), provider, &fakeStore{}, nil)

	first, err := svc.Check(context.Background(), "The moon is made of cheese")
	require.NoError(t, err)

	second, err := svc.Check(context.Background(), " The moon is made of cheese ")
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.FactCheck.ShortID, second.FactCheck.ShortID)
	assert.Equal(t, 1, provider.calls)
}

func TestNewReferenceFinder(t *testing.T) {
	assert.Nil(t, NewReferenceFinder(config.SearchConfig{}))
	assert.NotNil(t, NewReferenceFinder(config.SearchConfig{Wikipedia: true}))
}
