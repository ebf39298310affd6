package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/obstore/internal/db"
)

const scanBatch = 100

// Reindex copies every document of source into dest under the same id.
// Bodies are copied unmodified; dest gets fresh versioning.
func (s *Store) Reindex(ctx context.Context, source, dest string) (int, error) {
	keys, err := s.scan(ctx, s.docPrefix(source)+"*")
	if err != nil {
		return 0, err
	}

	copied := 0
	for start := 0; start < len(keys); start += scanBatch {
		batch := keys[start:min(start+scanBatch, len(keys))]

		cmds := make([]rueidis.Completed, len(batch))
		for i, key := range batch {
			cmds[i] = s.jsonGetCmd(key)
		}
		results := s.client.DoMulti(ctx, cmds...)

		for i, res := range results {
			body, err := res.ToString()
			if err != nil {
				if rueidis.IsRedisNil(err) {
					continue // deleted since SCAN
				}
				return copied, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("key %s: %w", batch[i], err)}
			}

			id := s.idFromDocKey(source, batch[i])
			reply := indexScript.Exec(ctx, s.client, s.writeKeys(dest, id), []string{body, "0"})
			if _, _, _, err := parseWriteReply(reply); err != nil {
				return copied, err
			}
			copied++
		}
	}
	return copied, nil
}

// scan iterates keys matching a pattern.
func (s *Store) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
