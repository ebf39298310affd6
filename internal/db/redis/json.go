package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/obstore/internal/db"
)

var metaFields = []string{"version", "seq_no", "primary_term"}

// GetDocument fetches one document with its versioning.
func (s *Store) GetDocument(ctx context.Context, index, id string) (db.Document, error) {
	docs, err := s.MultiGet(ctx, index, []string{id})
	if err != nil {
		return db.Document{}, err
	}
	if !docs[0].Found {
		return db.Document{}, db.ErrKeyNotFound
	}
	return docs[0], nil
}

// MultiGet fetches documents and their meta hashes in a single DoMulti round-trip.
func (s *Store) MultiGet(ctx context.Context, index string, ids []string) ([]db.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, 0, 2*len(ids))
	for _, id := range ids {
		cmds = append(cmds,
			s.jsonGetCmd(s.docKey(index, id)),
			s.metaGetCmd(s.metaKey(index, id)),
		)
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]db.Document, len(ids))
	for i, id := range ids {
		doc, err := parseDocument(id, results[2*i], results[2*i+1])
		if err != nil {
			return nil, err
		}
		out[i] = doc
	}
	return out, nil
}

func (s *Store) jsonGetCmd(key string) rueidis.Completed {
	return s.b().Arbitrary("JSON.GET").Keys(key).Build()
}

func (s *Store) metaGetCmd(key string) rueidis.Completed {
	return s.b().Hmget().Key(key).Field(metaFields...).Build()
}

func parseDocument(id string, docRes, metaRes rueidis.RedisResult) (db.Document, error) {
	raw, err := docRes.ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return db.Document{ID: id}, nil
		}
		return db.Document{}, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	if raw == "" {
		return db.Document{ID: id}, nil
	}

	version, seqNo, primaryTerm, err := parseMeta(metaRes)
	if err != nil {
		return db.Document{}, err
	}

	return db.Document{
		ID:          id,
		Found:       true,
		Source:      []byte(raw),
		Version:     version,
		SeqNo:       seqNo,
		PrimaryTerm: primaryTerm,
	}, nil
}

// parseMeta reads an HMGET reply. Missing fields count as zero; documents
// copied in by older writers may lack a meta hash.
func parseMeta(res rueidis.RedisResult) (version, seqNo, primaryTerm int64, err error) {
	vals, err := res.ToArray()
	if err != nil {
		return 0, 0, 0, &db.Error{Op: db.OpHMGet, Err: err}
	}
	nums := make([]int64, len(metaFields))
	for i := range nums {
		if i >= len(vals) {
			break
		}
		if n, err := vals[i].AsInt64(); err == nil {
			nums[i] = n
		}
	}
	return nums[0], nums[1], nums[2], nil
}
