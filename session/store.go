package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/iammetrics"
)

// ErrRedisUnavailable is returned when a Redis command fails.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrInvalidSession is returned when a session record misses its realm or session ID.
var ErrInvalidSession = errors.New("invalid session record")

// ErrUnknownClient is returned when a session names a client that is not registered.
var ErrUnknownClient = errors.New("unknown client")

// pruneExpired drops sessions whose expiry score is <= now and releases their
// client counts. KEYS[1] = live zset, KEYS[2] = owners hash, KEYS[3] = counts hash.
const pruneExpired = `
local function release(owners, counts, sid)
  local client = redis.call("HGET", owners, sid)
  if not client then
    return
  end
  redis.call("HDEL", owners, sid)
  local count = tonumber(redis.call("HGET", counts, client) or "0")
  if count > 1 then
    redis.call("HINCRBY", counts, client, -1)
  elseif count == 1 then
    redis.call("HDEL", counts, client)
  end
end

local function prune(live, owners, counts, now)
  local expired = redis.call("ZRANGEBYSCORE", live, "-inf", now)
  for _, sid in ipairs(expired) do
    release(owners, counts, sid)
  end
  if #expired > 0 then
    redis.call("ZREMRANGEBYSCORE", live, "-inf", now)
  end
end
`

// ARGV[1] = session ID, ARGV[2] = internal client ID, ARGV[3] = now (ms),
// ARGV[4] = expiry score (ms, or +inf)
var startSessionLua = redis.NewScript(pruneExpired + `
prune(KEYS[1], KEYS[2], KEYS[3], ARGV[3])
if redis.call("ZSCORE", KEYS[1], ARGV[1]) then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[4], ARGV[1])
redis.call("HSET", KEYS[2], ARGV[1], ARGV[2])
redis.call("HINCRBY", KEYS[3], ARGV[2], 1)
return 1
`)

// ARGV[1] = session ID, ARGV[2] = now (ms)
var endSessionLua = redis.NewScript(pruneExpired + `
prune(KEYS[1], KEYS[2], KEYS[3], ARGV[2])
if redis.call("ZREM", KEYS[1], ARGV[1]) == 0 then
  return 0
end
release(KEYS[2], KEYS[3], ARGV[1])
return 1
`)

// ARGV[1] = now (ms)
var statsLua = redis.NewScript(pruneExpired + `
prune(KEYS[1], KEYS[2], KEYS[3], ARGV[1])
return redis.call("HGETALL", KEYS[3])
`)

// Store is a Redis-backed realm, client and session-count directory.
type Store struct {
	redis      redis.UniversalClient
	prefix     string
	sessionTTL time.Duration
	now        func() time.Time
}

// NewStore creates a [Store] backed by the given Redis client. prefix sets the
// key namespace. sessionTTL bounds how long a session stays live without
// an end event; zero keeps sessions until they end. Expired sessions stop
// counting on the next start, end or stats call for their realm.
func NewStore(rdb redis.UniversalClient, prefix string, sessionTTL time.Duration) *Store {
	if prefix == "" {
		prefix = "iam"
	}
	return &Store{redis: rdb, prefix: prefix, sessionTTL: sessionTTL, now: time.Now}
}

func (s *Store) realmsKey() string {
	return s.prefix + ":realms"
}

func (s *Store) clientsKey(realmID string) string {
	return s.prefix + ":clients:" + realmID
}

func (s *Store) countsKey(realmID string) string {
	return s.prefix + ":sessions:" + realmID
}

func (s *Store) liveKey(realmID string) string {
	return s.prefix + ":live:" + realmID
}

func (s *Store) ownersKey(realmID string) string {
	return s.prefix + ":owners:" + realmID
}

func (s *Store) sessionKeys(realmID string) []string {
	return []string{s.liveKey(realmID), s.ownersKey(realmID), s.countsKey(realmID)}
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// PutRealm registers or renames a realm.
func (s *Store) PutRealm(ctx context.Context, realm iammetrics.Realm) error {
	name := realm.Name
	if name == "" {
		name = realm.ID
	}
	if err := s.redis.HSet(ctx, s.realmsKey(), realm.ID, name).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// EnsureRealm registers the realm under its ID when it is not known yet.
func (s *Store) EnsureRealm(ctx context.Context, realmID string) error {
	if err := s.redis.HSetNX(ctx, s.realmsKey(), realmID, realmID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// PutClient registers a client in a realm. A missing InternalID is generated.
// The stored record is returned.
func (s *Store) PutClient(ctx context.Context, rec ClientRecord) (ClientRecord, error) {
	if rec.InternalID == "" {
		rec.InternalID = uuid.NewString()
	}
	if err := s.redis.HSet(ctx, s.clientsKey(rec.RealmID), rec.ClientID, rec.InternalID).Err(); err != nil {
		return ClientRecord{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return rec, nil
}

// EnsureClient returns the internal ID of a client, registering it with a new
// UUID when absent.
func (s *Store) EnsureClient(ctx context.Context, realmID, clientID string) (string, error) {
	key := s.clientsKey(realmID)
	if _, err := s.redis.HSetNX(ctx, key, clientID, uuid.NewString()).Result(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	id, err := s.redis.HGet(ctx, key, clientID).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return id, nil
}

func (s *Store) resolveClient(ctx context.Context, rec SessionRecord) (string, error) {
	if rec.InternalClientID != "" {
		return rec.InternalClientID, nil
	}
	id, err := s.redis.HGet(ctx, s.clientsKey(rec.RealmID), rec.ClientID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: %s/%s", ErrUnknownClient, rec.RealmID, rec.ClientID)
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return id, nil
}

// SessionStarted marks a session live and increments its client's count.
// Starting an already live session does nothing and reports false. With a
// session TTL the session expires unless it ends first.
//
//	Performance: 1 HGET (when the internal ID is unresolved) + 1 EVALSHA.
func (s *Store) SessionStarted(ctx context.Context, rec SessionRecord) (bool, error) {
	if rec.RealmID == "" || rec.SessionID == "" {
		return false, ErrInvalidSession
	}
	internalID, err := s.resolveClient(ctx, rec)
	if err != nil {
		return false, err
	}

	now := s.nowMillis()
	expiry := "+inf"
	if s.sessionTTL > 0 {
		expiry = strconv.FormatInt(now+s.sessionTTL.Milliseconds(), 10)
	}
	res, err := startSessionLua.Run(
		ctx,
		s.redis,
		s.sessionKeys(rec.RealmID),
		rec.SessionID,
		internalID,
		now,
		expiry,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

// SessionEnded removes a live session and decrements its client's count.
// Ending an unknown or expired session is a no-op and reports false.
func (s *Store) SessionEnded(ctx context.Context, realmID, sessionID string) (bool, error) {
	if realmID == "" || sessionID == "" {
		return false, ErrInvalidSession
	}
	res, err := endSessionLua.Run(ctx, s.redis, s.sessionKeys(realmID), sessionID, s.nowMillis()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

// ListRealms returns every registered realm ordered by ID.
func (s *Store) ListRealms(ctx context.Context) ([]iammetrics.Realm, error) {
	all, err := s.redis.HGetAll(ctx, s.realmsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	realms := make([]iammetrics.Realm, 0, len(all))
	for id, name := range all {
		realms = append(realms, iammetrics.Realm{ID: id, Name: name})
	}
	sort.Slice(realms, func(i, j int) bool { return realms[i].ID < realms[j].ID })
	return realms, nil
}

// ListClients returns the clients registered in realm ordered by client ID.
func (s *Store) ListClients(ctx context.Context, realm iammetrics.Realm) ([]iammetrics.Client, error) {
	all, err := s.redis.HGetAll(ctx, s.clientsKey(realm.ID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	clients := make([]iammetrics.Client, 0, len(all))
	for clientID, internalID := range all {
		clients = append(clients, iammetrics.Client{ClientID: clientID, InternalID: internalID})
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ClientID < clients[j].ClientID })
	return clients, nil
}

// ActiveClientSessionStats returns live session counts keyed by internal client ID.
// Clients without live sessions are absent. Expired sessions are released first.
func (s *Store) ActiveClientSessionStats(ctx context.Context, realm iammetrics.Realm) (map[string]int64, error) {
	flat, err := statsLua.Run(ctx, s.redis, s.sessionKeys(realm.ID), s.nowMillis()).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	stats := make(map[string]int64, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		internalID, raw := flat[i], flat[i+1]
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("session count for %s: %w", internalID, err)
		}
		if n > 0 {
			stats[internalID] = n
		}
	}
	return stats, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
