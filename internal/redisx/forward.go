package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// forwardOnly replaces a JSON value only when ARGV[2] is above the numeric
// "status" field of the stored one. A value that does not decode is replaced.
var forwardOnly = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local ok, snap = pcall(cjson.decode, cur)
  if ok and type(snap) == 'table' and tonumber(snap.status) and tonumber(snap.status) >= tonumber(ARGV[2]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// SetIfHigher writes val under key unless the stored value already carries
// a status of at least status. It reports whether val was written.
func (s *Store) SetIfHigher(ctx context.Context, key string, val []byte, status int, ttl time.Duration) (bool, error) {
	n, err := forwardOnly.Run(ctx, s.rdb, []string{key}, val, status, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
