package ratelimit

import (
	"sync"
	"time"

	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ============================================================================
// 进程内限流
// ============================================================================
//
// 三档独立令牌桶，按 (客户端IP, 截断UA) 维度计数。超限后进入封禁窗口，
// 窗口内的请求直接拒绝并带 Retry-After。
//
// 【已知约束】状态在进程内存里，多副本部署时各副本独立计数。
// 需要跨副本限流时应换成集中式计数（Redis），当前部署形态单进程够用。
//
// ============================================================================

// Tier 限流档位
type Tier struct {
	Name   string
	Limit  int           // 窗口内允许的请求数
	Window time.Duration // 计数窗口
	Block  time.Duration // 超限后的封禁时长
}

var (
	TierGlobal = Tier{Name: "global", Limit: 100, Window: time.Minute, Block: time.Minute}
	TierStrict = Tier{Name: "strict", Limit: 10, Window: time.Minute, Block: 5 * time.Minute}
	TierAuth   = Tier{Name: "auth", Limit: 5, Window: 15 * time.Minute, Block: time.Hour}
)

type visitor struct {
	limiter      *rate.Limiter
	blockedUntil time.Time
	lastSeen     time.Time
}

// Limiter 单档限流器
type Limiter struct {
	tier     Tier
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// New 创建限流器并启动过期清理
func New(tier Tier) *Limiter {
	l := &Limiter{
		tier:     tier,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
	go l.cleanupLoop()
	return l
}

func (l *Limiter) getVisitor(key string) *visitor {
	v, exists := l.visitors[key]
	if !exists {
		v = &visitor{
			// 把窗口配额折算成速率，burst 取满窗口配额
			limiter: rate.NewLimiter(
				rate.Limit(float64(l.tier.Limit)/l.tier.Window.Seconds()),
				l.tier.Limit,
			),
		}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v
}

// Allow 判定一次请求；拒绝时返回建议的等待时长
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v := l.getVisitor(key)

	if now.Before(v.blockedUntil) {
		return false, v.blockedUntil.Sub(now)
	}

	if !v.limiter.AllowN(now, 1) {
		v.blockedUntil = now.Add(l.tier.Block)
		return false, l.tier.Block
	}

	return true, 0
}

// cleanupLoop 周期清理不活跃的计数项，防止 map 无限增长
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		cutoff := l.now().Add(-3 * l.tier.Window)
		for key, v := range l.visitors {
			if v.lastSeen.Before(cutoff) && l.now().After(v.blockedUntil) {
				delete(l.visitors, key)
			}
		}
		l.mu.Unlock()
	}
}

// Key 限流维度：客户端IP + 截断到64字节的UA
func Key(clientIP, userAgent string) string {
	if len(userAgent) > 64 {
		userAgent = userAgent[:64]
	}
	return clientIP + "|" + userAgent
}

// Middleware gin 中间件，超限返回 429
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := Key(c.ClientIP(), c.Request.UserAgent())
		ok, retryAfter := l.Allow(key)
		if !ok {
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			response.TooManyRequests(c, seconds)
			return
		}
		c.Next()
	}
}
