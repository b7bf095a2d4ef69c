package transcriber

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/z-wentao/scriptsync/pkg/models"
)

const verboseBody = `{"task":"transcribe","language":"english","duration":3.0,"text":"Hello world",
"segments":[{"id":0,"seek":0,"start":0.0,"end":1.2,"text":" Hello"},{"id":1,"seek":0,"start":1.2,"end":3.0,"text":" world"}]}`

func newTestWhisper(t *testing.T, handler http.HandlerFunc) (*WhisperClient, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	wc := NewWhisperClient(openai.NewClientWithConfig(cfg), "")
	wc.backoff = time.Millisecond

	audio := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(audio, []byte("fake audio"), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return wc, audio
}

// TestWhisperTranscribe 测试转录请求参数与响应转换
func TestWhisperTranscribe(t *testing.T) {
	var path, language, format string
	wc, audio := newTestWhisper(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		language = r.FormValue("language")
		format = r.FormValue("response_format")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(verboseBody))
	})

	resp, err := wc.Recognize(context.Background(), audio, models.ModeOriginal, "en")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if path != "/v1/audio/transcriptions" || language != "en" || format != "verbose_json" {
		t.Fatalf("unexpected request path=%q language=%q format=%q", path, language, format)
	}
	if len(resp.Segments) != 2 || resp.Segments[1].Start != 1.2 || resp.Segments[1].Text != " world" {
		t.Fatalf("unexpected segments %+v", resp.Segments)
	}
	if resp.Language != "english" || resp.Text != "Hello world" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

// TestWhisperTranslate 测试翻译模式走 translations 接口
func TestWhisperTranslate(t *testing.T) {
	var path string
	wc, audio := newTestWhisper(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(verboseBody))
	})
	if _, err := wc.Recognize(context.Background(), audio, models.ModeTranslate, "fr"); err != nil {
		t.Fatalf("translate: %v", err)
	}
	if path != "/v1/audio/translations" {
		t.Fatalf("unexpected path %q", path)
	}
}

// TestWhisperRetry 测试失败后重试成功
func TestWhisperRetry(t *testing.T) {
	var calls int32
	wc, audio := newTestWhisper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"busy","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(verboseBody))
	})
	resp, err := wc.RecognizeWithRetry(context.Background(), audio, models.ModeOriginal, "en", 3)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 || len(resp.Segments) != 2 {
		t.Fatalf("unexpected calls %d", calls)
	}
}

// TestWhisperRetryExhausted 测试重试耗尽后返回 TranscriptionServiceError
func TestWhisperRetryExhausted(t *testing.T) {
	var calls int32
	wc, audio := newTestWhisper(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"down","type":"server_error"}}`))
	})
	_, err := wc.RecognizeWithRetry(context.Background(), audio, models.ModeOriginal, "en", 2)
	if !errors.Is(err, models.ErrTranscriptionService) {
		t.Fatalf("expect ErrTranscriptionService, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expect 2 calls, got %d", calls)
	}
}

// TestWhisperTranslateFailure 测试 translations 接口失败归类为 TranslationServiceError
func TestWhisperTranslateFailure(t *testing.T) {
	wc, audio := newTestWhisper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad audio","type":"invalid_request_error"}}`))
	})
	_, err := wc.Recognize(context.Background(), audio, models.ModeTranslate, "")
	if !errors.Is(err, models.ErrTranslationService) {
		t.Fatalf("expect ErrTranslationService, got %v", err)
	}
	if errors.Is(err, models.ErrTranscriptionService) {
		t.Fatalf("translation failure should not be a transcription error")
	}
}
