package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"timed-quiz-service/internal/domain"
)

const bankKey = "quiz:bank"

// BankLoader fetches the question bank from a backing store (JSON file, DB).
type BankLoader interface {
	LoadBank(ctx context.Context) (domain.Bank, error)
}

// BankRepository caches the serialized bank in Redis and falls back to a
// loader on cache miss. The bank is stored as: SET quiz:bank {json}.
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context) (domain.Bank, error) {
	if bank, ok := r.cached(ctx); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(bankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := r.cached(ctx); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx)
		if err != nil {
			return domain.Bank(nil), err
		}

		data, err := json.Marshal(bank)
		if err != nil {
			return domain.Bank(nil), fmt.Errorf("marshal bank: %w", err)
		}
		// best-effort cache fill; a failed SET only costs a reload
		_ = r.client.Set(ctx, bankKey, data, r.ttlWithJitter()).Err()

		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.Bank), nil
}

func (r *BankRepository) cached(ctx context.Context) (domain.Bank, bool) {
	data, err := r.client.Get(ctx, bankKey).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var bank domain.Bank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, false
	}
	return bank, len(bank) > 0
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
