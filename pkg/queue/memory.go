package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// MemoryQueue 基于 Channel 的内存队列实现
type MemoryQueue struct {
	queue     chan *models.SubtitleJob
	closed    chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue 创建内存队列
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	return &MemoryQueue{
		queue:  make(chan *models.SubtitleJob, bufferSize),
		closed: make(chan struct{}),
	}
}

// Enqueue 将任务加入队列（队列满时立即返回错误，不阻塞上传请求）
func (mq *MemoryQueue) Enqueue(job *models.SubtitleJob) error {
	select {
	case <-mq.closed:
		return ErrClosed
	default:
	}

	select {
	case mq.queue <- job:
		return nil
	default:
		return fmt.Errorf("队列已满")
	}
}

// Dequeue 从队列取出任务（阻塞等待）
func (mq *MemoryQueue) Dequeue(ctx context.Context) (*models.SubtitleJob, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-mq.closed:
		return nil, ErrClosed
	case job := <-mq.queue:
		return job, nil
	}
}

// Ack 内存队列无需确认
func (mq *MemoryQueue) Ack(job *models.SubtitleJob) error {
	return nil
}

// Nack 内存队列按需重新入队
func (mq *MemoryQueue) Nack(job *models.SubtitleJob, requeue bool) error {
	if !requeue {
		return nil
	}
	return mq.Enqueue(job)
}

// Close 关闭队列
func (mq *MemoryQueue) Close() error {
	mq.closeOnce.Do(func() {
		close(mq.closed)
	})
	return nil
}
