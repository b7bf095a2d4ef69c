package transcriber

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// fakeMedia 不调用 ffmpeg，直接返回预设分片
type fakeMedia struct {
	chunks   []models.Chunk
	duration float64
	extract  error
	cleaned  bool
}

func (m *fakeMedia) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if m.extract != nil {
		return "", m.extract
	}
	return videoPath + ".mp3", nil
}

func (m *fakeMedia) Split(ctx context.Context, audioPath string) ([]models.Chunk, float64, error) {
	return m.chunks, m.duration, nil
}

func (m *fakeMedia) Cleanup(chunks []models.Chunk) error {
	m.cleaned = true
	return nil
}

// fakeRecognizer 按分片路径返回预设结果
type fakeRecognizer struct {
	mu        sync.Mutex
	responses map[string]*WhisperResponse
	fail      map[string]error
	modes     []models.TranslationMode
}

func (r *fakeRecognizer) RecognizeWithRetry(ctx context.Context, audioPath string, mode models.TranslationMode, language string, maxRetries int) (*WhisperResponse, error) {
	r.mu.Lock()
	r.modes = append(r.modes, mode)
	r.mu.Unlock()
	if err := r.fail[audioPath]; err != nil {
		return nil, err
	}
	return r.responses[audioPath], nil
}

func twoChunks() []models.Chunk {
	return []models.Chunk{
		{Index: 0, FilePath: "c0.mp3", Start: 0, End: 600},
		{Index: 1, FilePath: "c1.mp3", Start: 600, End: 700},
	}
}

// TestEngineSegments 测试分片合并、偏移与重新编号
func TestEngineSegments(t *testing.T) {
	media := &fakeMedia{chunks: twoChunks(), duration: 700}
	rec := &fakeRecognizer{responses: map[string]*WhisperResponse{
		"c0.mp3": {Language: "english", Segments: []models.Segment{
			{ID: 0, Start: 0, End: 2.5, Text: " Hello there."},
			{ID: 1, Start: 2.5, End: 3, Text: "   "},
		}},
		"c1.mp3": {Segments: []models.Segment{
			{ID: 0, Start: 1, End: 4.25, Text: "Second chunk"},
		}},
	}}
	engine := NewTranscriptionEngine(rec, media, EngineOptions{ChunkConcurrency: 2, Language: "en"})

	var progress []int
	var mu sync.Mutex
	res, err := engine.Segments(context.Background(), "video.mp4", models.ModeOriginal, func(p int) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("segments: %v", err)
	}

	want := []models.Segment{
		{ID: 1, Start: 0, End: 2.5, Text: "Hello there."},
		{ID: 2, Start: 601, End: 604.25, Text: "Second chunk"},
	}
	if len(res.Segments) != len(want) {
		t.Fatalf("unexpected segments %+v", res.Segments)
	}
	for i := range want {
		if res.Segments[i] != want[i] {
			t.Fatalf("segment %d = %+v, want %+v", i, res.Segments[i], want[i])
		}
	}
	if res.Language != "english" || res.Duration != 700 {
		t.Fatalf("unexpected result meta %+v", res)
	}
	if !media.cleaned {
		t.Fatalf("chunks should be cleaned up")
	}
	if len(progress) != 2 || progress[len(progress)-1] != 100 {
		t.Fatalf("unexpected progress %v", progress)
	}
}

// TestEngineModePassedThrough 测试翻译模式传给识别器
func TestEngineModePassedThrough(t *testing.T) {
	media := &fakeMedia{chunks: twoChunks()[:1], duration: 10}
	rec := &fakeRecognizer{responses: map[string]*WhisperResponse{"c0.mp3": {}}}
	engine := NewTranscriptionEngine(rec, media, EngineOptions{})
	res, err := engine.Segments(context.Background(), "video.mp4", models.ModeTranslate, nil)
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	if len(rec.modes) != 1 || rec.modes[0] != models.ModeTranslate {
		t.Fatalf("unexpected modes %v", rec.modes)
	}
	if res.Language != "en" || len(res.Segments) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

// TestEngineChunkFailure 测试任一分片失败时整体失败
func TestEngineChunkFailure(t *testing.T) {
	media := &fakeMedia{chunks: twoChunks(), duration: 700}
	boom := models.NewError(models.KindTranscriptionService, "transcription", errors.New("boom"))
	rec := &fakeRecognizer{
		responses: map[string]*WhisperResponse{"c0.mp3": {}},
		fail:      map[string]error{"c1.mp3": boom},
	}
	engine := NewTranscriptionEngine(rec, media, EngineOptions{})
	_, err := engine.Segments(context.Background(), "video.mp4", models.ModeOriginal, nil)
	if !errors.Is(err, models.ErrTranscriptionService) {
		t.Fatalf("expect ErrTranscriptionService, got %v", err)
	}
}

// TestEngineExtractFailure 测试音轨提取失败
func TestEngineExtractFailure(t *testing.T) {
	media := &fakeMedia{extract: models.NewError(models.KindMediaExtraction, "extract audio", errors.New("no audio"))}
	engine := NewTranscriptionEngine(&fakeRecognizer{}, media, EngineOptions{})
	_, err := engine.Segments(context.Background(), "video.mp4", models.ModeOriginal, nil)
	if !errors.Is(err, models.ErrMediaExtraction) {
		t.Fatalf("expect ErrMediaExtraction, got %v", err)
	}
}

// TestEngineNoChunks 测试分片为空时返回错误而不是 panic
func TestEngineNoChunks(t *testing.T) {
	media := &fakeMedia{duration: 0}
	engine := NewTranscriptionEngine(&fakeRecognizer{}, media, EngineOptions{})
	_, err := engine.Segments(context.Background(), "video.mp4", models.ModeOriginal, nil)
	if !errors.Is(err, models.ErrMediaExtraction) {
		t.Fatalf("expect ErrMediaExtraction, got %v", err)
	}
	if !media.cleaned {
		t.Fatalf("cleanup should still run")
	}
}

// TestChunkCountFor 测试分片数量计算
func TestChunkCountFor(t *testing.T) {
	cases := []struct {
		duration float64
		size     int
		want     int
	}{
		{0, 600, 1},
		{600, 600, 1},
		{600.5, 600, 2},
		{1800, 600, 3},
	}
	for _, c := range cases {
		if got := chunkCountFor(c.duration, c.size); got != c.want {
			t.Fatalf("chunkCountFor(%v, %d) = %d, want %d", c.duration, c.size, got, c.want)
		}
	}
}

// TestParseDuration 测试 ffprobe 输出解析
func TestParseDuration(t *testing.T) {
	d, err := parseDuration("12.345\n")
	if err != nil || d != 12.345 {
		t.Fatalf("parse: %v %v", d, err)
	}
	for _, bad := range []string{"", "N/A"} {
		if _, err := parseDuration(bad); !errors.Is(err, models.ErrMediaExtraction) {
			t.Fatalf("parse(%q): expect ErrMediaExtraction, got %v", bad, err)
		}
	}
}
