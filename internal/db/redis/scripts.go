package redis

import "github.com/redis/rueidis"

// Writes keep the document, its meta hash and the index sequence in step.
// KEYS: doc, meta, seq.

// indexScript ARGV: body, createOnly ("1" or "0").
// Returns {result, version, seq_no}.
var indexScript = rueidis.NewLuaScript(`
local exists = redis.call('EXISTS', KEYS[1]) == 1
if exists and ARGV[2] == '1' then
  return {'noop', 0, 0}
end
redis.call('JSON.SET', KEYS[1], '$', ARGV[1])
local ver = redis.call('HINCRBY', KEYS[2], 'version', 1)
local seq = redis.call('INCR', KEYS[3])
redis.call('HSET', KEYS[2], 'seq_no', seq, 'primary_term', 1)
if exists then
  return {'updated', ver, seq}
end
return {'created', ver, seq}
`)

// updateScript ARGV: body. Returns {result, version, seq_no}.
var updateScript = rueidis.NewLuaScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {'not_found', 0, 0}
end
redis.call('JSON.SET', KEYS[1], '$', ARGV[1])
local ver = redis.call('HINCRBY', KEYS[2], 'version', 1)
local seq = redis.call('INCR', KEYS[3])
redis.call('HSET', KEYS[2], 'seq_no', seq, 'primary_term', 1)
return {'updated', ver, seq}
`)

// deleteScript returns the result name.
var deleteScript = rueidis.NewLuaScript(`
if redis.call('DEL', KEYS[1]) == 0 then
  return 'not_found'
end
redis.call('DEL', KEYS[2])
redis.call('INCR', KEYS[3])
return 'deleted'
`)
