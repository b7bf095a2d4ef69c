package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// TestMemoryQueueFIFO 测试先进先出
func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(2)
	_ = q.Enqueue(&models.SubtitleJob{JobID: "a"})
	_ = q.Enqueue(&models.SubtitleJob{JobID: "b"})
	for _, want := range []string{"a", "b"} {
		job, err := q.Dequeue(context.Background())
		if err != nil || job.JobID != want {
			t.Fatalf("dequeue: %v %v", job, err)
		}
	}
}

// TestMemoryQueueFull 测试队列满
func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Enqueue(&models.SubtitleJob{JobID: "a"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(&models.SubtitleJob{JobID: "b"}); err == nil {
		t.Fatalf("expect full error")
	}
}

// TestMemoryQueueNackRequeue 测试 Nack 重新入队
func TestMemoryQueueNackRequeue(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Nack(&models.SubtitleJob{JobID: "a"}, true); err != nil {
		t.Fatalf("nack: %v", err)
	}
	job, err := q.Dequeue(context.Background())
	if err != nil || job.JobID != "a" {
		t.Fatalf("dequeue: %v %v", job, err)
	}
}

// TestMemoryQueueClose 测试关闭后 Dequeue 返回 ErrClosed
func TestMemoryQueueClose(t *testing.T) {
	q := NewMemoryQueue(1)
	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		done <- err
	}()
	_ = q.Close()
	_ = q.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expect ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("dequeue did not return after close")
	}
	if err := q.Enqueue(&models.SubtitleJob{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expect ErrClosed on enqueue, got %v", err)
	}
}

// TestMemoryQueueContext 测试 ctx 取消
func TestMemoryQueueContext(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expect deadline exceeded, got %v", err)
	}
}
