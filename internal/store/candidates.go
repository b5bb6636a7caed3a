package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/starford/recruitflow/internal/models"
)

const candidateColumns = `id, first_name, last_name, email, phone, position, source, notes,
	skills, cv_reference, status, created_at, updated_at`

// Default and maximum page sizes for ListCandidates.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(s rowScanner) (*models.Candidate, error) {
	var (
		c                models.Candidate
		skills           string
		cv               sql.NullString
		created, updated int64
	)
	if err := s.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Position,
		&c.Source, &c.Notes, &skills, &cv, &c.Status, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(skills), &c.Skills); err != nil {
		return nil, fmt.Errorf("decode skills for %s: %w", c.ID, err)
	}
	if c.Skills == nil {
		c.Skills = []string{}
	}
	if cv.Valid {
		ref := cv.String
		c.CVReference = &ref
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return &c, nil
}

// InsertCandidate stores a new candidate. A clash on the normalized email
// returns ErrUniqueViolation.
func (q *Queries) InsertCandidate(ctx context.Context, c *models.Candidate) error {
	skills, err := encodeList(c.Skills)
	if err != nil {
		return err
	}
	_, err = q.exec(ctx, "insert candidate", `
		INSERT INTO candidates (id, first_name, last_name, email, email_normalized, phone,
			position, source, notes, skills, cv_reference, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FirstName, c.LastName, c.Email, models.NormalizeEmail(c.Email), c.Phone,
		c.Position, c.Source, c.Notes, skills, nullString(c.CVReference), string(c.Status),
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
	return err
}

// GetCandidate loads a candidate by id.
func (q *Queries) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := scanCandidate(q.queryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id))
	if err != nil {
		return nil, classify("get candidate", err)
	}
	return c, nil
}

// GetCandidateForUpdate loads a candidate and holds its row until the
// transaction ends, so writers of one candidate run one after another.
// SQLite write transactions already hold the database lock.
func (q *Queries) GetCandidateForUpdate(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := scanCandidate(q.queryRow(ctx,
		q.d.forUpdate(`SELECT `+candidateColumns+` FROM candidates WHERE id = ?`), id))
	if err != nil {
		return nil, classify("lock candidate", err)
	}
	return c, nil
}

// GetCandidateByEmail loads a candidate by email, compared after normalization.
func (q *Queries) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	c, err := scanCandidate(q.queryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE email_normalized = ?`,
		models.NormalizeEmail(email)))
	if err != nil {
		return nil, classify("get candidate by email", err)
	}
	return c, nil
}

// UpdateCandidate rewrites the editable attributes of c. Status is left
// alone; it changes only through UpdateCandidateStatus.
func (q *Queries) UpdateCandidate(ctx context.Context, c *models.Candidate) error {
	skills, err := encodeList(c.Skills)
	if err != nil {
		return err
	}
	res, err := q.exec(ctx, "update candidate", `
		UPDATE candidates SET first_name = ?, last_name = ?, email = ?, email_normalized = ?,
			phone = ?, position = ?, source = ?, notes = ?, skills = ?, cv_reference = ?,
			updated_at = ?
		WHERE id = ?`,
		c.FirstName, c.LastName, c.Email, models.NormalizeEmail(c.Email), c.Phone, c.Position,
		c.Source, c.Notes, skills, nullString(c.CVReference), toMillis(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	return expectOne("update candidate", res)
}

// UpdateCandidateStatus sets only the status column.
func (q *Queries) UpdateCandidateStatus(ctx context.Context, id string, status models.CandidateStatus, at time.Time) error {
	res, err := q.exec(ctx, "update candidate status",
		`UPDATE candidates SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toMillis(at), id)
	if err != nil {
		return err
	}
	return expectOne("update candidate status", res)
}

// DeleteCandidate removes a candidate and its interviews.
func (q *Queries) DeleteCandidate(ctx context.Context, id string) error {
	if _, err := q.exec(ctx, "delete candidate interviews",
		`DELETE FROM interviews WHERE candidate_id = ?`, id); err != nil {
		return err
	}
	res, err := q.exec(ctx, "delete candidate", `DELETE FROM candidates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne("delete candidate", res)
}

// ListCandidates returns one page of candidates, newest first, and the total
// number of matches.
func (q *Queries) ListCandidates(ctx context.Context, f models.CandidateFilter) ([]models.Candidate, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Position != "" {
		where = append(where, "lower(position) = ?")
		args = append(args, strings.ToLower(f.Position))
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		where = append(where, `(lower(first_name || ' ' || last_name) LIKE ? ESCAPE '\' OR email_normalized LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM candidates`+clause, args...).Scan(&total); err != nil {
		return nil, 0, classify("count candidates", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(f.Offset, 0)

	rows, err := q.query(ctx, "list candidates",
		`SELECT `+candidateColumns+` FROM candidates`+clause+
			` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.Candidate, 0, limit)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, classify("scan candidate", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("list candidates", err)
	}
	return out, total, nil
}

// likeEscaper makes user text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("store: encode list: %w", err)
	}
	return string(b), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
