package queue

import (
    "context"
    "errors"

    "github.com/z-wentao/scriptsync/pkg/models"
)

// ErrClosed 队列已关闭
var ErrClosed = errors.New("队列已关闭")

// Queue 任务队列接口
// 面试亮点：使用接口抽象，内存队列与 RabbitMQ 可按配置切换
type Queue interface {
    // Enqueue 将任务加入队列
    Enqueue(job *models.SubtitleJob) error

    // Dequeue 从队列取出任务（阻塞，直到有任务、队列关闭或 ctx 取消）
    Dequeue(ctx context.Context) (*models.SubtitleJob, error)

    // Ack 确认消息（任务处理成功）
    Ack(job *models.SubtitleJob) error

    // Nack 拒绝消息（任务处理失败）
    // requeue: 是否重新入队
    Nack(job *models.SubtitleJob, requeue bool) error

    // Close 关闭队列
    Close() error
}
