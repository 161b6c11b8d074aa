package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// subscriptionCacheKey memoizes verdicts per user so the gate does not hit
// the billing provider on every lesson view.
func subscriptionCacheKey(userID string) string {
	return fmt.Sprintf("learn:sub:%s", userID)
}

// SubscriptionConfig governs the external entitlement check.
type SubscriptionConfig struct {
	// VerifyURL is the billing provider endpoint; empty disables
	// verification and every check returns false.
	VerifyURL string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

// SubscriptionService verifies premium entitlements against an external
// billing provider. Verification fails closed: any transport error, timeout
// or malformed response counts as not subscribed.
type SubscriptionService struct {
	client *http.Client
	cache  *CacheService
	logger *zap.Logger
	config SubscriptionConfig
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(cache *CacheService, logger *zap.Logger, config SubscriptionConfig) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &SubscriptionService{
		client: &http.Client{Timeout: config.Timeout},
		cache:  cache,
		logger: logger,
		config: config,
	}
}

type subscriptionVerdict struct {
	Active bool `json:"active"`
}

// IsSubscribed reports whether the user holds an active subscription.
// Verdicts are cached for a short window and invalidated lazily by TTL;
// a lapsed subscription may therefore be honored for at most CacheTTL.
func (s *SubscriptionService) IsSubscribed(ctx context.Context, userID, email string) bool {
	if s == nil || s.config.VerifyURL == "" || email == "" {
		return false
	}

	key := subscriptionCacheKey(userID)
	var cached subscriptionVerdict
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached.Active
		}
	}

	active := s.verify(ctx, email)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, subscriptionVerdict{Active: active}, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache subscription verdict", zap.Error(err))
		}
	}

	return active
}

func (s *SubscriptionService) verify(ctx context.Context, email string) bool {
	endpoint, err := url.Parse(s.config.VerifyURL)
	if err != nil {
		s.logger.Warn("invalid subscription verify url", zap.Error(err))
		return false
	}
	query := endpoint.Query()
	query.Set("email", email)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		s.logger.Warn("failed to build subscription request", zap.Error(err))
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("subscription verification failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("subscription provider returned non-success status", zap.Int("status", resp.StatusCode))
		return false
	}

	var verdict subscriptionVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		s.logger.Warn("failed to decode subscription response", zap.Error(err))
		return false
	}

	return verdict.Active
}
