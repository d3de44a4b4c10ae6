// Package seq allocates per-conversation message sequence numbers. Hot
// allocation runs through redis Lua scripts over pre-leased segments; the
// mongo DAO is the durable source the segments are leased from. Each
// conversation has its own sequence, so throughput scales across
// conversations while appends within one conversation stay serialized.
package seq

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

// Atomic in-segment allocation.
// KEYS[1]=key; ARGV[1]=need; ARGV[2]=segEnd; ARGV[3]=nowMs
// Returns {0,start,0,end,nowMs} on success; {1} not found;
// {3,curr,end,0,nowMs} when the segment is exhausted or stale.
var luaInSegment = redis.NewScript(`
  local k = KEYS[1]
  local need = tonumber(ARGV[1])
  local segEnd = tonumber(ARGV[2])
  local nowms = tonumber(ARGV[3])

  local curr = redis.call('HGET', k, 'curr')
  local endv = redis.call('HGET', k, 'end')
  if not curr or not endv then
    return {1}
  end
  curr = tonumber(curr); endv = tonumber(endv)

  if segEnd ~= 0 and segEnd ~= endv then
    return {3, curr, endv, 0, nowms}
  end

  local start = curr + 1
  local newv  = curr + need
  if newv > endv then
    return {3, curr, endv, 0, nowms}
  end
  redis.call('HSET', k, 'curr', newv, 'mill', nowms)
  return {0, start, 0, endv, nowms}
`)

// Load/refresh a segment: curr=start-1, end=end, mill=nowMs, with a TTL so
// cold conversations age out of redis.
var luaSetSegment = redis.NewScript(`
  local k = KEYS[1]
  local curr = tonumber(ARGV[1])
  local endv = tonumber(ARGV[2])
  local nowms= tonumber(ARGV[3])
  redis.call('HSET', k, 'curr', curr, 'end', endv, 'mill', nowms)
  redis.call('PEXPIRE', k, 3600000)
  return 1
`)

// SegmentDAO leases durable seq segments for a conversation and records
// the committed waterline.
type SegmentDAO interface {
	AllocSegment(ctx context.Context, conversationID string, block int64) (start, end int64, err error)
	AdvanceCommit(ctx context.Context, conversationID string, toSeq int64) error
}

type Allocator struct {
	Rdb         redis.Scripter
	DAO         SegmentDAO
	BlockSizeFn func(conversationID string, want int64) int64
	KeyFn       func(conversationID string) string
	MaxRetry    int
}

func defaultBlock(_ string, want int64) int64 {
	if want <= 0 {
		want = 1
	}
	if want < 32 {
		return 256 // cold conversation, small segment
	}
	return want * 8
}

func defaultKey(conv string) string { return "seq:blk:" + conv }

func (a *Allocator) ensure() {
	if a.BlockSizeFn == nil {
		a.BlockSizeFn = defaultBlock
	}
	if a.KeyFn == nil {
		a.KeyFn = defaultKey
	}
	if a.MaxRetry == 0 {
		a.MaxRetry = 10
	}
}

// Next allocates one seq for the conversation.
func (a *Allocator) Next(ctx context.Context, conversationID string) (int64, error) {
	start, err := a.Malloc(ctx, conversationID, 1)
	return start, err
}

// AdvanceCommit lifts the conversation's committed waterline: allocation
// runs ahead of commits, so readers trust max_seq, not issued_seq.
func (a *Allocator) AdvanceCommit(ctx context.Context, conversationID string, toSeq int64) error {
	return a.DAO.AdvanceCommit(ctx, conversationID, toSeq)
}

// Malloc allocates need consecutive seqs and returns the first.
func (a *Allocator) Malloc(ctx context.Context, conversationID string, need int64) (int64, error) {
	a.ensure()
	if need <= 0 {
		need = 1
	}
	key := a.KeyFn(conversationID)
	nowms := time.Now().UnixMilli()

	// Fast path: allocate inside the currently-leased segment.
	if res, e := luaInSegment.Run(ctx, a.Rdb, []string{key}, need, 0, nowms).Result(); e == nil {
		arr := res.([]interface{})
		switch arr[0].(int64) {
		case 0:
			return arr[1].(int64), nil
		case 1, 3:
			// segment missing or exhausted: lease a fresh one below
		default:
			return 0, errs.ErrConflict.WrapMsg("unknown allocator state", "state", arr[0])
		}
	}

	// Lease a segment from mongo, publish it to redis, then retry in-segment.
	var lastErr error
	for i := 0; i < a.MaxRetry; i++ {
		block := a.BlockSizeFn(conversationID, need)

		segStart, segEnd, e := a.DAO.AllocSegment(ctx, conversationID, block)
		if e != nil {
			lastErr = errs.ErrUnavailable.WrapMsg("segment lease failed", "err", e)
			break
		}

		if _, e = luaSetSegment.Run(ctx, a.Rdb, []string{key}, segStart-1, segEnd, nowms).Result(); e != nil {
			lastErr = e
			time.Sleep(10 * time.Millisecond)
			continue
		}

		res2, e := luaInSegment.Run(ctx, a.Rdb, []string{key}, need, segEnd, nowms).Result()
		if e != nil {
			lastErr = e
			time.Sleep(10 * time.Millisecond)
			continue
		}
		arr := res2.([]interface{})
		if arr[0].(int64) == 0 {
			return arr[1].(int64), nil
		}
		time.Sleep(5 * time.Millisecond) // segment raced away, retry
	}
	if lastErr == nil {
		lastErr = errs.ErrConflict.WrapMsg("seq allocation retries exhausted", "conv", conversationID)
	}
	return 0, lastErr
}
