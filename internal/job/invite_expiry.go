package job

import (
	"context"
	"log"
	"time"

	"controltower/internal/repository"

	"gorm.io/gorm"
)

// InviteExpiryJob 邀请过期清理任务
//
// 过期判定在读取路径上已经兜住（接受时比对 expires_at），
// 这个任务只负责把过期的 pending 行批量翻成 expired，
// 让列表查询不用每次都算一遍。
type InviteExpiryJob struct {
	inviteRepo repository.InviteRepository
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewInviteExpiryJob(db *gorm.DB) *InviteExpiryJob {
	return &InviteExpiryJob{
		inviteRepo: repository.NewInviteRepository(db),
		stopCh:     make(chan struct{}),
		interval:   time.Minute,
		batchSize:  500,
	}
}

func (j *InviteExpiryJob) Start(ctx context.Context) {
	log.Println("[InviteExpiryJob] 邀请过期清理任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[InviteExpiryJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[InviteExpiryJob] 任务停止")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *InviteExpiryJob) Stop() {
	close(j.stopCh)
}

func (j *InviteExpiryJob) sweep(ctx context.Context) {
	n, err := j.inviteRepo.ExpireStale(ctx, time.Now(), j.batchSize)
	if err != nil {
		log.Printf("[InviteExpiryJob] 清理失败: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[InviteExpiryJob] 清理过期邀请 %d 条", n)
	}
}
