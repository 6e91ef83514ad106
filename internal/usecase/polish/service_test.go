package polish

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/domain/entity"
)

func testTemplates(t *testing.T) *Templates {
	t.Helper()
	tpls, err := LoadTemplates("")
	require.NoError(t, err)
	return tpls
}

func smallChunking() config.ChunkingConfig {
	return config.ChunkingConfig{Threshold: 20, ChunkSize: 10, Overlap: 2}
}

func TestService_Polish_ShortPath(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, string) (string, error) { return "潤飾後", nil }}
	metrics := &fakeMetrics{}
	svc := NewService(gen, testTemplates(t), smallChunking(), WithMetrics(metrics))

	res, err := svc.Polish(context.Background(), "短的逐字稿", "stock_analysis")

	require.NoError(t, err)
	assert.Equal(t, "潤飾後", res.Content)
	assert.Equal(t, "stock_analysis", res.Template)
	assert.False(t, res.Chunked)
	assert.Equal(t, 1, res.Chunks)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, gen.prompts, 1, "single orchestrated call")
	assert.Contains(t, gen.prompts[0], "短的逐字稿")
	assert.Contains(t, gen.prompts[0], "股票代號", "stock template polish prompt used")
	assert.Equal(t, []string{"polish:success"}, metrics.runs)
}

func TestService_Polish_ThresholdIsInclusive(t *testing.T) {
	gen := &fakeGenerator{respond: echoUpper}
	svc := NewService(gen, testTemplates(t), smallChunking(), WithMetrics(&fakeMetrics{}))

	res, err := svc.Polish(context.Background(), strings.Repeat("x", 20), "")

	require.NoError(t, err)
	assert.False(t, res.Chunked)
	assert.Len(t, gen.prompts, 1)
}

func TestService_Polish_LongPath(t *testing.T) {
	doc := strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("c", 5)

	gen := &fakeGenerator{respond: func(call int, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "FORMAT:") {
			return "formatted", nil
		}
		return strings.TrimPrefix(prompt, "CHUNK:"), nil
	}}
	tpls := testTemplates(t)
	tpls.templates["plain"] = Template{
		PolishPrompt:  "{transcript}",
		SummaryPrompt: "{transcript}",
		ChunkPrompt:   "CHUNK:{transcript}",
		FormatPrompt:  "FORMAT:{transcript}",
	}
	metrics := &fakeMetrics{}
	svc := NewService(gen, tpls, smallChunking(), WithMetrics(metrics))

	res, err := svc.Polish(context.Background(), doc, "plain")

	require.NoError(t, err)
	assert.Equal(t, "formatted", res.Content)
	assert.True(t, res.Chunked)
	assert.True(t, res.Reassembled)
	assert.Equal(t, 3, res.Chunks)
	assert.Zero(t, res.FailedChunks)

	// 25 runes, size 10, overlap 2: [0,10) [8,18) [16,25)
	require.Len(t, gen.prompts, 4)
	assert.Equal(t, "CHUNK:aaaaaaaaaa", gen.prompts[0])
	assert.Equal(t, "CHUNK:aabbbbbbbb", gen.prompts[1])
	assert.Equal(t, "CHUNK:bbbbccccc", gen.prompts[2])
	assert.Equal(t, "FORMAT:aaaaaaaaaa\n\naabbbbbbbb\n\nbbbbccccc", gen.prompts[3])
}

func TestService_Polish_LongPathNeverDropsContent(t *testing.T) {
	doc := strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("c", 5)

	gen := &fakeGenerator{respond: func(call int, prompt string) (string, error) {
		return "", entity.ErrAllCandidatesExhausted
	}}
	svc := NewService(gen, testTemplates(t), smallChunking(), WithMetrics(&fakeMetrics{}))

	res, err := svc.Polish(context.Background(), doc, "")

	require.NoError(t, err, "long path always yields text")
	assert.False(t, res.Reassembled)
	assert.Equal(t, 3, res.FailedChunks)
	assert.Equal(t, "aaaaaaaaaa\n\naabbbbbbbb\n\nbbbbccccc", res.Content)
}

func TestService_Polish_ShortPathFailure(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, string) (string, error) { return "", entity.ErrNoBackendsConfigured }}
	metrics := &fakeMetrics{}
	svc := NewService(gen, testTemplates(t), smallChunking(), WithMetrics(metrics))

	_, err := svc.Polish(context.Background(), "short", "")

	assert.ErrorIs(t, err, entity.ErrNoBackendsConfigured)
	assert.Equal(t, []string{"polish:failure"}, metrics.runs)
}

func TestService_Polish_Empty(t *testing.T) {
	svc := NewService(&fakeGenerator{respond: echoUpper}, testTemplates(t), smallChunking(), WithMetrics(&fakeMetrics{}))

	_, err := svc.Polish(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestService_Polish_RequestOptionsForwarded(t *testing.T) {
	gen := &fakeGenerator{respond: echoUpper}
	svc := NewService(gen, testTemplates(t), smallChunking(),
		WithMetrics(&fakeMetrics{}),
		WithRequestOptions(RequestOptions{Model: "gemma3:27b", Retries: 4}))

	_, err := svc.Polish(context.Background(), "short", "")
	require.NoError(t, err)

	require.Len(t, gen.reqs, 1)
	assert.Equal(t, "gemma3:27b", gen.reqs[0].Model)
	assert.Equal(t, 4, gen.reqs[0].Retries)
}

func TestService_Summarize(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, string) (string, error) { return "# 摘要", nil }}
	svc := NewService(gen, testTemplates(t), smallChunking(), WithMetrics(&fakeMetrics{}))

	res, err := svc.Summarize(context.Background(), "逐字稿內容", "EP1 開場", "")

	require.NoError(t, err)
	assert.Equal(t, "# 摘要", res.Summary)
	assert.Equal(t, DefaultTemplate, res.Template)
	assert.Equal(t, "test-model", res.Model)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "# EP1 開場")
	assert.Contains(t, gen.prompts[0], "逐字稿內容")
}

func TestService_Process(t *testing.T) {
	t.Run("polish then summarize", func(t *testing.T) {
		gen := &fakeGenerator{respond: func(call int, prompt string) (string, error) {
			if call == 0 {
				return "polished text", nil
			}
			return "summary of " + prompt[len(prompt)-len("polished text"):], nil
		}}
		tpls := testTemplates(t)
		tpls.templates["plain"] = Template{PolishPrompt: "{transcript}", SummaryPrompt: "{episode_title}|{transcript}"}
		svc := NewService(gen, tpls, smallChunking(), WithMetrics(&fakeMetrics{}))

		res, err := svc.Process(context.Background(), ProcessRequest{Transcript: "raw", Title: "EP", Template: "plain"})

		require.NoError(t, err)
		assert.Equal(t, "polished text", res.Polished)
		assert.Equal(t, "summary of polished text", res.Summary)
		assert.Equal(t, "plain", res.Template)
		assert.Empty(t, res.PolishError)
		assert.Equal(t, []string{"raw", "EP|polished text"}, gen.prompts)
	})

	t.Run("polish failure is tolerated", func(t *testing.T) {
		gen := &fakeGenerator{respond: func(call int, prompt string) (string, error) {
			if call == 0 {
				return "", entity.ErrAllCandidatesExhausted
			}
			return "summary", nil
		}}
		tpls := testTemplates(t)
		tpls.templates["plain"] = Template{PolishPrompt: "{transcript}", SummaryPrompt: "{transcript}"}
		svc := NewService(gen, tpls, smallChunking(), WithMetrics(&fakeMetrics{}))

		res, err := svc.Process(context.Background(), ProcessRequest{Transcript: "raw", Template: "plain"})

		require.NoError(t, err)
		assert.Equal(t, "raw", res.Polished)
		assert.Equal(t, "summary", res.Summary)
		assert.NotEmpty(t, res.PolishError)
		assert.Equal(t, "raw", gen.prompts[1], "raw transcript summarized")
	})

	t.Run("skip polish", func(t *testing.T) {
		gen := &fakeGenerator{respond: echoUpper}
		svc := NewService(gen, testTemplates(t), smallChunking(), WithMetrics(&fakeMetrics{}))

		res, err := svc.Process(context.Background(), ProcessRequest{Transcript: "raw", SkipPolish: true})

		require.NoError(t, err)
		assert.Equal(t, "raw", res.Polished)
		assert.Len(t, gen.prompts, 1)
	})

	t.Run("summary failure is returned", func(t *testing.T) {
		gen := &fakeGenerator{respond: func(int, string) (string, error) {
			return "", errors.New("boom")
		}}
		metrics := &fakeMetrics{}
		svc := NewService(gen, testTemplates(t), smallChunking(), WithMetrics(metrics))

		_, err := svc.Process(context.Background(), ProcessRequest{Transcript: "raw"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "generate summary")
		assert.Equal(t, []string{"process:failure"}, metrics.runs)
	})

	t.Run("canceled context aborts", func(t *testing.T) {
		gen := &fakeGenerator{respond: echoUpper}
		svc := NewService(gen, testTemplates(t), smallChunking(), WithMetrics(&fakeMetrics{}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Process(ctx, ProcessRequest{Transcript: "raw"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
