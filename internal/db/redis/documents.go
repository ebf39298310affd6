package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/obstore/internal/db"
)

// IndexDocument writes body under id via indexScript. An empty id gets a random UUID.
func (s *Store) IndexDocument(
	ctx context.Context, index, id string, body []byte, createOnly bool,
) (db.IndexResponse, error) {
	if id == "" {
		id = uuid.NewString()
	}

	flag := "0"
	if createOnly {
		flag = "1"
	}

	res := indexScript.Exec(ctx, s.client, s.writeKeys(index, id), []string{string(body), flag})
	result, version, seqNo, err := parseWriteReply(res)
	if err != nil {
		return db.IndexResponse{}, err
	}
	return db.IndexResponse{ID: id, Result: result, Version: version, SeqNo: seqNo}, nil
}

// UpdateDocument replaces an existing document. Absent ones yield ResultNotFound.
func (s *Store) UpdateDocument(ctx context.Context, index, id string, body []byte) (db.Result, error) {
	res := updateScript.Exec(ctx, s.client, s.writeKeys(index, id), []string{string(body)})
	result, _, _, err := parseWriteReply(res)
	if err != nil {
		return "", err
	}
	return result, nil
}

// DeleteDocument removes a document and its meta hash.
func (s *Store) DeleteDocument(ctx context.Context, index, id string) (db.Result, error) {
	name, err := deleteScript.Exec(ctx, s.client, s.writeKeys(index, id), nil).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpEvalSHA, Err: err}
	}
	return db.Result(name), nil
}

// BulkDelete runs deleteScript once per id in a single pipeline, so each id
// behaves exactly like DeleteDocument, and reports each id separately.
func (s *Store) BulkDelete(ctx context.Context, index string, ids []string) (map[string]db.BulkStatus, error) {
	out := make(map[string]db.BulkStatus, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	execs := make([]rueidis.LuaExec, len(ids))
	for i, id := range ids {
		execs[i] = rueidis.LuaExec{Keys: s.writeKeys(index, id)}
	}

	for i, res := range deleteScript.ExecMulti(ctx, s.client, execs...) {
		name, err := res.ToString()
		switch {
		case err != nil:
			out[ids[i]] = db.StatusInternalError
		case db.Result(name) == db.ResultNotFound:
			out[ids[i]] = db.StatusNotFound
		default:
			out[ids[i]] = db.StatusOK
		}
	}
	return out, nil
}

func (s *Store) writeKeys(index, id string) []string {
	return []string{s.docKey(index, id), s.metaKey(index, id), s.seqKey(index)}
}

func parseWriteReply(res rueidis.RedisResult) (db.Result, int64, int64, error) {
	arr, err := res.ToArray()
	if err != nil {
		return "", 0, 0, &db.Error{Op: db.OpEvalSHA, Err: err}
	}
	if len(arr) != 3 {
		return "", 0, 0, &db.Error{Op: db.OpEvalSHA, Err: fmt.Errorf("unexpected reply length %d", len(arr))}
	}
	name, err := arr[0].ToString()
	if err != nil {
		return "", 0, 0, &db.Error{Op: db.OpEvalSHA, Err: err}
	}
	version, err := arr[1].AsInt64()
	if err != nil {
		return "", 0, 0, &db.Error{Op: db.OpEvalSHA, Err: err}
	}
	seqNo, err := arr[2].AsInt64()
	if err != nil {
		return "", 0, 0, &db.Error{Op: db.OpEvalSHA, Err: err}
	}
	return db.Result(name), version, seqNo, nil
}
