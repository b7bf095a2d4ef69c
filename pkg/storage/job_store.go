package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// JobStore 任务存储（内存实现）
// 使用 RWMutex 保证并发安全，对外只暴露副本
type JobStore struct {
	jobs map[string]*models.SubtitleJob
	mu   sync.RWMutex // 读写锁
}

// NewJobStore 创建任务存储
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*models.SubtitleJob),
	}
}

// Save 保存任务
func (js *JobStore) Save(job *models.SubtitleJob) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	clone := *job
	js.jobs[job.JobID] = &clone
	return nil
}

// Get 获取任务
func (js *JobStore) Get(jobID string) (*models.SubtitleJob, error) {
	js.mu.RLock()
	defer js.mu.RUnlock()

	job, exists := js.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	clone := *job
	return &clone, nil
}

// Update 更新任务状态
func (js *JobStore) Update(jobID string, updateFn func(*models.SubtitleJob)) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, exists := js.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	updateFn(job)
	return nil
}

// List 列出所有任务
func (js *JobStore) List() ([]*models.SubtitleJob, error) {
	js.mu.RLock()
	defer js.mu.RUnlock()

	jobs := make([]*models.SubtitleJob, 0, len(js.jobs))
	for _, job := range js.jobs {
		clone := *job
		jobs = append(jobs, &clone)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs, nil
}

// Delete 删除任务
func (js *JobStore) Delete(jobID string) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if _, exists := js.jobs[jobID]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	delete(js.jobs, jobID)
	return nil
}

// Close 关闭存储（内存存储无需关闭）
func (js *JobStore) Close() error {
	return nil
}
