package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 【为什么钱包写入要加锁？】
//
// 余额本身靠 version 条件更新（CAS）保证不超扣，但自动充值路径上
// 还有一次外部扣款调用：
//
//   读余额 -> 发现不足 -> 调支付渠道充值 -> 写余额
//
// 两个并发扣费请求如果都走到"调支付渠道充值"，用户会被扣两次卡。
// CAS 只能让其中一个写入失败重试，救不回已经发出去的扣款。
// 所以涉及外部扣款的钱包操作按团队维度串行化。
//
// 【Redis 锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：Lua 脚本先验 value 再删 key，保证原子性
//
// ============================================================================

var ErrLockFailed = errors.New("acquire distributed lock failed")

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string        // 锁持有者标识
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 【关键点】持有者校验 + 删除必须原子执行：
// A 持锁超时自动过期 -> B 拿到锁 -> A 调 Unlock，
// 如果不校验 value，A 会把 B 的锁删掉
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// Locker 接口：service 层通过它加锁，便于测试替换
// ============================================================================

// Locker 按 key 串行化的互斥器
type Locker interface {
	// Lock 获取锁，返回释放函数
	Lock(ctx context.Context, key string) (func(), error)
}

// RedisLocker 基于 Redis 的 Locker 实现
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	maxRetries    int
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client:        client,
		ttl:           30 * time.Second,
		retryInterval: 100 * time.Millisecond,
		maxRetries:    30,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	dl := NewDistributedLock(l.client, key, uuid.NewString(), l.ttl)
	if err := dl.Lock(ctx, l.retryInterval, l.maxRetries); err != nil {
		return nil, err
	}
	return func() {
		// 释放用独立 context：请求取消不应导致锁滞留到过期
		_ = dl.Unlock(context.Background())
	}, nil
}

// NoopLocker 空实现，单测使用
type NoopLocker struct{}

func (NoopLocker) Lock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// WalletKey 钱包锁 key（按团队维度）
//
// 按团队加锁：不同团队可以并发扣费，同一团队串行 —— 正是我们要的粒度
func WalletKey(teamID string) string {
	return fmt.Sprintf("wallet:lock:team:%s", teamID)
}
