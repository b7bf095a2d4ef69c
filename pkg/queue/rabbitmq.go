package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/z-wentao/scriptsync/pkg/models"
)

const consumerTag = "scriptsync-worker"

// RabbitMQQueue RabbitMQ 队列实现
// 1. 单一 Consumer（所有 Worker 共享）
// 2. 通过 QoS prefetchCount 控制并发
// 3. 手动 Ack/Nack 保证消息可靠性
type RabbitMQQueue struct {
	url       string
	queueName string
	prefetch  int
	closed    chan struct{}
	closeOnce sync.Once

	// 发布消息用的连接和通道
	publishConn    *amqp.Connection
	publishChannel *amqp.Channel
	publishMutex   sync.Mutex

	// 消费消息用的连接和通道
	consumeConn    *amqp.Connection
	consumeChannel *amqp.Channel
	deliveries     <-chan amqp.Delivery // 所有 Worker 共享这个 Go Channel

	// RabbitMQ Channel 不是并发安全的，Ack/Nack 需要加锁
	ackMutex sync.Mutex
}

// NewRabbitMQQueue 创建 RabbitMQ 队列
// prefetch 通常等于 Worker 数量
func NewRabbitMQQueue(url, queueName string, prefetch int) (*RabbitMQQueue, error) {
	if prefetch <= 0 {
		prefetch = 1
	}

	rq := &RabbitMQQueue{
		url:       url,
		queueName: queueName,
		prefetch:  prefetch,
		closed:    make(chan struct{}),
	}

	// 1. 建立发布连接
	if err := rq.setupPublisher(); err != nil {
		return nil, fmt.Errorf("初始化发布者失败: %w", err)
	}

	// 2. 建立消费连接
	if err := rq.setupConsumer(); err != nil {
		rq.closePublisher()
		return nil, fmt.Errorf("初始化消费者失败: %w", err)
	}

	log.Printf("✓ RabbitMQ 队列初始化成功 (队列: %s)", queueName)

	return rq, nil
}

// declare 声明持久化队列（幂等操作）
func (rq *RabbitMQQueue) declare(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		rq.queueName, // name
		true,         // durable: 持久化队列
		false,        // autoDelete: 不自动删除
		false,        // exclusive: 非独占
		false,        // noWait
		nil,          // args
	)
	return err
}

// openChannel 建立连接与 Channel，并声明队列
func (rq *RabbitMQQueue) openChannel() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(rq.url)
	if err != nil {
		return nil, nil, fmt.Errorf("连接失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("创建 RabbitMQ Channel 失败: %w", err)
	}

	if err := rq.declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("声明队列失败: %w", err)
	}
	return conn, ch, nil
}

// setupPublisher 发布与消费使用独立连接，避免消费端流控阻塞上传请求
func (rq *RabbitMQQueue) setupPublisher() error {
	conn, ch, err := rq.openChannel()
	if err != nil {
		return err
	}
	rq.publishConn, rq.publishChannel = conn, ch
	return nil
}

// setupConsumer 设置 QoS 并开始消费（手动确认）
func (rq *RabbitMQQueue) setupConsumer() error {
	conn, ch, err := rq.openChannel()
	if err != nil {
		return err
	}

	fail := func(msg string, err error) error {
		ch.Close()
		conn.Close()
		return fmt.Errorf("%s: %w", msg, err)
	}

	// 每个 Worker 最多持有一条未确认消息
	if err := ch.Qos(rq.prefetch, 0, false); err != nil {
		return fail("设置 QoS 失败", err)
	}

	deliveries, err := ch.Consume(rq.queueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fail("启动消费失败", err)
	}

	rq.consumeConn, rq.consumeChannel, rq.deliveries = conn, ch, deliveries
	log.Printf("✓ RabbitMQ 消费者已启动 (队列: %s, prefetch=%d)", rq.queueName, rq.prefetch)
	return nil
}

// Enqueue 将任务加入队列
func (rq *RabbitMQQueue) Enqueue(job *models.SubtitleJob) error {
	body, err := encodeJob(job)
	if err != nil {
		return err
	}

	rq.publishMutex.Lock()
	defer rq.publishMutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = rq.publishChannel.PublishWithContext(
		ctx,
		"",           // exchange: 默认 exchange
		rq.queueName, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent, // 消息持久化
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	return nil
}

// Dequeue 从队列取出任务（阻塞）
// Go Channel 保证每条消息只会被一个 Worker 读取
func (rq *RabbitMQQueue) Dequeue(ctx context.Context) (*models.SubtitleJob, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-rq.closed:
		return nil, ErrClosed
	case delivery, ok := <-rq.deliveries:
		if !ok {
			return nil, fmt.Errorf("消费通道已关闭")
		}

		job, err := decodeJob(delivery.Body)
		if err != nil {
			// 反序列化失败，拒绝消息（不重新入队）
			rq.nackInternal(delivery.DeliveryTag, false)
			return nil, err
		}

		// 保存 delivery 信息用于后续确认
		job.DeliveryTag = delivery.DeliveryTag
		job.RabbitMQDelivery = &delivery

		return job, nil
	}
}

// Ack 确认消息（任务处理成功）
func (rq *RabbitMQQueue) Ack(job *models.SubtitleJob) error {
	if job.RabbitMQDelivery == nil {
		return nil // 不是 RabbitMQ 消息，忽略
	}
	return rq.ackInternal(job.DeliveryTag)
}

// Nack 拒绝消息（任务处理失败）
func (rq *RabbitMQQueue) Nack(job *models.SubtitleJob, requeue bool) error {
	if job.RabbitMQDelivery == nil {
		return nil
	}
	return rq.nackInternal(job.DeliveryTag, requeue)
}

func (rq *RabbitMQQueue) ackInternal(deliveryTag uint64) error {
	rq.ackMutex.Lock()
	defer rq.ackMutex.Unlock()

	return rq.consumeChannel.Ack(deliveryTag, false)
}

func (rq *RabbitMQQueue) nackInternal(deliveryTag uint64, requeue bool) error {
	rq.ackMutex.Lock()
	defer rq.ackMutex.Unlock()

	return rq.consumeChannel.Nack(deliveryTag, false, requeue)
}

// Close 关闭队列
func (rq *RabbitMQQueue) Close() error {
	rq.closeOnce.Do(func() {
		close(rq.closed)

		if rq.consumeChannel != nil {
			rq.consumeChannel.Close()
		}
		if rq.consumeConn != nil {
			rq.consumeConn.Close()
		}
		rq.closePublisher()

		log.Println("✓ RabbitMQ 队列已关闭")
	})
	return nil
}

// closePublisher 关闭发布者连接
func (rq *RabbitMQQueue) closePublisher() {
	if rq.publishChannel != nil {
		rq.publishChannel.Close()
	}
	if rq.publishConn != nil {
		rq.publishConn.Close()
	}
}

// QueueInfo 获取队列信息（调试用）
func (rq *RabbitMQQueue) QueueInfo() (messages, consumers int, err error) {
	rq.publishMutex.Lock()
	defer rq.publishMutex.Unlock()

	q, err := rq.publishChannel.QueueDeclarePassive(rq.queueName, true, false, false, false, nil)
	if err != nil {
		return 0, 0, err
	}
	return q.Messages, q.Consumers, nil
}

func encodeJob(job *models.SubtitleJob) ([]byte, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("序列化任务失败: %w", err)
	}
	return body, nil
}

func decodeJob(body []byte) (*models.SubtitleJob, error) {
	var job models.SubtitleJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("反序列化任务失败: %w", err)
	}
	if job.JobID == "" {
		return nil, fmt.Errorf("反序列化任务失败: 缺少 job_id")
	}
	return &job, nil
}
