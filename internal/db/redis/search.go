package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
)

// sourceField is the FT.SEARCH return field holding the whole JSON document.
const sourceField = "$"

// Search runs a structured query via FT.SEARCH and attaches each hit's versioning.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query.Size < 0 || q.Query.From < 0 {
		return nil, fmt.Errorf("pagination must be non-negative")
	}

	args := []string{q.Index, buildQuery(q.Query.Clauses)}

	if q.Query.Sort.Field != "" {
		order := "ASC"
		if q.Query.Sort.Order == query.Desc {
			order = "DESC"
		}
		args = append(args, "SORTBY", db.FieldAlias(q.Query.Sort.Field), order)
	}

	args = append(args,
		"RETURN", "1", sourceField,
		"LIMIT", strconv.Itoa(q.Query.From), strconv.Itoa(q.Query.Size),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := s.parseSearchResult(q.Index, raw)
	if err != nil {
		return nil, err
	}
	if err := s.attachMeta(ctx, q.Index, res.Hits); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) attachMeta(ctx context.Context, index string, hits []db.Document) error {
	if len(hits) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, len(hits))
	for i := range hits {
		cmds[i] = s.metaGetCmd(s.metaKey(index, hits[i].ID))
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		version, seqNo, primaryTerm, err := parseMeta(res)
		if err != nil {
			return err
		}
		hits[i].Version = version
		hits[i].SeqNo = seqNo
		hits[i].PrimaryTerm = primaryTerm
	}
	return nil
}

// --- Result parsing ---

func (s *Store) parseSearchResult(index string, raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	hits := make([]db.Document, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		source, ok := parseFieldPairs(fields)[sourceField]
		if !ok {
			continue
		}

		hits = append(hits, db.Document{
			ID:     s.idFromDocKey(index, key),
			Found:  true,
			Source: []byte(source),
		})
	}

	return &db.SearchResult{Total: int(total), Hits: hits}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildQuery renders clauses as an FT.SEARCH query in DIALECT 2. Clauses are
// intersected; an empty list matches everything.
func buildQuery(clauses []query.Clause) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if p := buildClause(c); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func buildClause(c query.Clause) string {
	switch c.Kind() {
	case query.KindTerm, query.KindTerms:
		return buildTagFilter(c.Field(), c.Values())
	case query.KindType:
		tags := buildTagFilter(c.Field(), c.Values())
		if c.IncludeMissing() {
			return fmt.Sprintf("(%s | ismissing(@%s))", tags, db.FieldAlias(c.Field()))
		}
		return tags
	case query.KindNumeric:
		n := strconv.FormatInt(c.Number(), 10)
		return fmt.Sprintf("@%s:[%s %s]", db.FieldAlias(c.Field()), n, n)
	case query.KindRange:
		return buildNumericFilter(c.Field(), c.Range())
	case query.KindMatch, query.KindQueryString:
		return buildTextFilter(c.Fields(), c.Values())
	default:
		return ""
	}
}

func buildTagFilter(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", db.FieldAlias(key), strings.Join(escaped, " | "))
}

func buildNumericFilter(key string, r query.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.From() != nil {
		minBound = strconv.FormatInt(*r.From(), 10)
	}
	if r.To() != nil {
		maxBound = strconv.FormatInt(*r.To(), 10)
	}

	return fmt.Sprintf("@%s:[%s %s]", db.FieldAlias(key), minBound, maxBound)
}

// buildTextFilter requires every token in any of the fields: @a|b:(t1 t2).
func buildTextFilter(fields, tokens []string) string {
	aliases := make([]string, len(fields))
	for i, f := range fields {
		aliases[i] = db.FieldAlias(f)
	}
	escaped := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			escaped = append(escaped, escapeQuery(t))
		}
	}
	if len(aliases) == 0 || len(escaped) == 0 {
		return ""
	}
	return fmt.Sprintf("@%s:(%s)", strings.Join(aliases, "|"), strings.Join(escaped, " "))
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`.`, `\.`,
	`,`, `\,`,
)
