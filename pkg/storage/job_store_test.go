package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// TestJobStoreLifecycle 测试保存、更新、删除
func TestJobStoreLifecycle(t *testing.T) {
	s := NewJobStore()
	job := &models.SubtitleJob{JobID: "j1", Status: models.StatusPending}
	if err := s.Save(job); err != nil {
		t.Fatalf("save: %v", err)
	}

	// 保存后修改原对象不影响存储
	job.Status = models.StatusFailed
	got, err := s.Get("j1")
	if err != nil || got.Status != models.StatusPending {
		t.Fatalf("get: %+v %v", got, err)
	}

	if err := s.Update("j1", func(j *models.SubtitleJob) { j.Progress = 50 }); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.Get("j1")
	if got.Progress != 50 {
		t.Fatalf("progress not updated: %+v", got)
	}

	if err := s.Delete("j1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("j1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expect ErrNotFound, got %v", err)
	}
	if err := s.Update("j1", func(*models.SubtitleJob) {}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expect ErrNotFound, got %v", err)
	}
	if err := s.Delete("j1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expect ErrNotFound, got %v", err)
	}
}

// TestJobStoreListOrder 测试按创建时间倒序
func TestJobStoreListOrder(t *testing.T) {
	s := NewJobStore()
	now := time.Now()
	_ = s.Save(&models.SubtitleJob{JobID: "old", CreatedAt: now.Add(-time.Hour)})
	_ = s.Save(&models.SubtitleJob{JobID: "new", CreatedAt: now})
	jobs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 || jobs[0].JobID != "new" || jobs[1].JobID != "old" {
		t.Fatalf("unexpected order %v %v", jobs[0].JobID, jobs[1].JobID)
	}
}

// TestJobStoreConcurrent 测试并发更新
func TestJobStoreConcurrent(t *testing.T) {
	s := NewJobStore()
	_ = s.Save(&models.SubtitleJob{JobID: "j"})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update("j", func(j *models.SubtitleJob) { j.Progress++ })
			_, _ = s.Get("j")
		}()
	}
	wg.Wait()
	got, _ := s.Get("j")
	if got.Progress != 50 {
		t.Fatalf("expect 50, got %d", got.Progress)
	}
}
