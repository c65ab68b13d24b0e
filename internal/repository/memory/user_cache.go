package memory

import (
	"time"

	"ai-therapist-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// UserCache keeps recently validated users in memory so the directory is not
// hit on every request. Entries expire; the database stays authoritative.
type UserCache struct {
	cache *cache.Cache
}

func NewUserCache() *UserCache {
	// 5 minute TTL, purge sweep every 10 minutes
	c := cache.New(5*time.Minute, 10*time.Minute)
	return &UserCache{
		cache: c,
	}
}

func (r *UserCache) Set(user *entity.User) {
	r.cache.Set(user.Id.String(), user, cache.DefaultExpiration)
}

func (r *UserCache) Get(userId uuid.UUID) (*entity.User, bool) {
	if x, found := r.cache.Get(userId.String()); found {
		return x.(*entity.User), true
	}
	return nil, false
}

func (r *UserCache) Delete(userId uuid.UUID) {
	r.cache.Delete(userId.String())
}
