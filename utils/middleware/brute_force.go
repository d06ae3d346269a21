package middleware

import (
	"strconv"
	"time"

	"github.com/eduhub/marketplace-api/utils/cache"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// failures are counted per client IP inside this window
const attemptWindow = 15 * time.Minute

// lockoutSteps is checked from the harshest step down
var lockoutSteps = []struct {
	attempts int64
	lock     time.Duration
}{
	{25, 24 * time.Hour},
	{10, time.Hour},
	{5, 2 * time.Minute},
}

// BruteForceProtection throttles /api/login with progressive, Redis-held lockouts
type BruteForceProtection struct {
	redisCache *cache.RedisCache
}

func NewBruteForceProtection(redisCache *cache.RedisCache) *BruteForceProtection {
	return &BruteForceProtection{redisCache: redisCache}
}

func lockKey(ip string) string    { return "login:lock:" + ip }
func attemptKey(ip string) string { return "login:attempts:" + ip }

// CheckLockout answers 429 with Retry-After while the caller's IP is locked.
// Redis errors let the request through.
func (b *BruteForceProtection) CheckLockout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		key := lockKey(c.IP())

		locked, err := b.redisCache.Exists(ctx, key)
		if err != nil || !locked {
			return c.Next()
		}

		retryAfter := 60
		if ttl, err := b.redisCache.TTL(ctx, key); err == nil && ttl > 0 {
			retryAfter = int(ttl.Seconds())
		}

		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return response.TooManyRequests(c, "Too many failed login attempts. Try again in "+strconv.Itoa(retryAfter)+" seconds")
	}
}

// RecordFailedAttempt counts a rejected login and locks the IP once a step is reached
func (b *BruteForceProtection) RecordFailedAttempt(c *fiber.Ctx) {
	ctx := c.UserContext()
	ip := c.IP()

	attempts, err := b.redisCache.IncrementWindow(ctx, attemptKey(ip), attemptWindow)
	if err != nil {
		return
	}
	if lock := LockoutFor(attempts); lock > 0 {
		_ = b.redisCache.Set(ctx, lockKey(ip), attempts, lock)
	}
}

// RecordSuccessfulAttempt forgets the IP's failures
func (b *BruteForceProtection) RecordSuccessfulAttempt(c *fiber.Ctx) {
	_ = b.redisCache.Delete(c.UserContext(), attemptKey(c.IP()), lockKey(c.IP()))
}

// LockoutFor maps a failed-attempt count to a lockout duration: 5 -> 2m, 10 -> 1h, 25 -> 24h
func LockoutFor(attempts int64) time.Duration {
	for _, step := range lockoutSteps {
		if attempts >= step.attempts {
			return step.lock
		}
	}
	return 0
}
