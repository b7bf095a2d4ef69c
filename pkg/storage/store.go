package storage

import (
    "errors"

    "github.com/z-wentao/scriptsync/pkg/models"
)

// ErrNotFound 任务不存在
var ErrNotFound = errors.New("任务不存在")

// Store 任务存储接口
type Store interface {
    // Save 保存任务
    Save(job *models.SubtitleJob) error

    // Get 获取任务（返回副本）
    Get(jobID string) (*models.SubtitleJob, error)

    // Update 更新任务（使用回调函数模式）
    Update(jobID string, updateFn func(*models.SubtitleJob)) error

    // List 列出所有任务（按创建时间倒序）
    List() ([]*models.SubtitleJob, error)

    // Delete 删除任务
    Delete(jobID string) error

    // Close 关闭存储连接
    Close() error
}
