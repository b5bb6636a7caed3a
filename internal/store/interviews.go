package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/starford/recruitflow/internal/models"
)

const interviewColumns = `id, candidate_id, interview_date, interview_type, interviewers,
	meeting_link, status, feedback, created_at, updated_at`

func scanInterview(s rowScanner) (*models.Interview, error) {
	var (
		iv                     models.Interview
		date, created, updated int64
		interviewers           string
		feedback               sql.NullString
	)
	if err := s.Scan(&iv.ID, &iv.CandidateID, &date, &iv.InterviewType, &interviewers,
		&iv.MeetingLink, &iv.Status, &feedback, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(interviewers), &iv.Interviewers); err != nil {
		return nil, fmt.Errorf("decode interviewers for %s: %w", iv.ID, err)
	}
	if iv.Interviewers == nil {
		iv.Interviewers = []string{}
	}
	if feedback.Valid {
		var fb models.Feedback
		if err := json.Unmarshal([]byte(feedback.String), &fb); err != nil {
			return nil, fmt.Errorf("decode feedback for %s: %w", iv.ID, err)
		}
		fb.SubmittedAt = fb.SubmittedAt.UTC()
		iv.Feedback = &fb
	}
	iv.InterviewDate = fromMillis(date)
	iv.CreatedAt = fromMillis(created)
	iv.UpdatedAt = fromMillis(updated)
	return &iv, nil
}

func encodeFeedback(fb *models.Feedback) (sql.NullString, error) {
	if fb == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(fb)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("store: encode feedback: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// InsertInterview stores a new interview. A second scheduled interview for
// the same candidate returns ErrUniqueViolation.
func (q *Queries) InsertInterview(ctx context.Context, iv *models.Interview) error {
	interviewers, err := encodeList(iv.Interviewers)
	if err != nil {
		return err
	}
	feedback, err := encodeFeedback(iv.Feedback)
	if err != nil {
		return err
	}
	_, err = q.exec(ctx, "insert interview", `
		INSERT INTO interviews (id, candidate_id, interview_date, interview_type, interviewers,
			meeting_link, status, feedback, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.CandidateID, toMillis(iv.InterviewDate), iv.InterviewType, interviewers,
		iv.MeetingLink, string(iv.Status), feedback, toMillis(iv.CreatedAt), toMillis(iv.UpdatedAt))
	return err
}

// GetInterview loads an interview by id.
func (q *Queries) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	iv, err := scanInterview(q.queryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id))
	if err != nil {
		return nil, classify("get interview", err)
	}
	return iv, nil
}

// GetInterviewForUpdate loads an interview and holds its row until the
// transaction ends.
func (q *Queries) GetInterviewForUpdate(ctx context.Context, id string) (*models.Interview, error) {
	iv, err := scanInterview(q.queryRow(ctx,
		q.d.forUpdate(`SELECT `+interviewColumns+` FROM interviews WHERE id = ?`), id))
	if err != nil {
		return nil, classify("lock interview", err)
	}
	return iv, nil
}

// UpdateInterview rewrites the mutable columns of iv.
func (q *Queries) UpdateInterview(ctx context.Context, iv *models.Interview) error {
	interviewers, err := encodeList(iv.Interviewers)
	if err != nil {
		return err
	}
	feedback, err := encodeFeedback(iv.Feedback)
	if err != nil {
		return err
	}
	res, err := q.exec(ctx, "update interview", `
		UPDATE interviews SET interview_date = ?, interview_type = ?, interviewers = ?,
			meeting_link = ?, status = ?, feedback = ?, updated_at = ?
		WHERE id = ?`,
		toMillis(iv.InterviewDate), iv.InterviewType, interviewers, iv.MeetingLink,
		string(iv.Status), feedback, toMillis(iv.UpdatedAt), iv.ID)
	if err != nil {
		return err
	}
	return expectOne("update interview", res)
}

// ScheduledInterview returns the candidate's scheduled interview, or
// ErrNoRows when there is none.
func (q *Queries) ScheduledInterview(ctx context.Context, candidateID string) (*models.Interview, error) {
	iv, err := scanInterview(q.queryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE candidate_id = ? AND status = ?`,
		candidateID, string(models.InterviewScheduled)))
	if err != nil {
		return nil, classify("get scheduled interview", err)
	}
	return iv, nil
}

// CountInterviews counts a candidate's interviews in the given status.
func (q *Queries) CountInterviews(ctx context.Context, candidateID string, status models.InterviewStatus) (int, error) {
	var n int
	err := q.queryRow(ctx,
		`SELECT COUNT(*) FROM interviews WHERE candidate_id = ? AND status = ?`,
		candidateID, string(status)).Scan(&n)
	if err != nil {
		return 0, classify("count interviews", err)
	}
	return n, nil
}

// ListInterviews returns a candidate's interviews ordered by date.
func (q *Queries) ListInterviews(ctx context.Context, candidateID string) ([]models.Interview, error) {
	rows, err := q.query(ctx, "list interviews",
		`SELECT `+interviewColumns+` FROM interviews WHERE candidate_id = ?
		ORDER BY interview_date, id`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, classify("scan interview", err)
		}
		out = append(out, *iv)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list interviews", err)
	}
	return out, nil
}
