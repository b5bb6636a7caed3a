package store

import (
	"context"

	"github.com/starford/recruitflow/internal/models"
)

// InsertAudit appends one entry to the audit trail of candidateID.
func (q *Queries) InsertAudit(ctx context.Context, candidateID string, e models.AuditEntry) error {
	_, err := q.exec(ctx, "insert audit", `
		INSERT INTO audit_log (id, candidate_id, entity, entity_id, operation, from_status,
			to_status, actor, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, candidateID, e.Entity, e.EntityID, e.Operation, e.FromStatus, e.ToStatus,
		e.Actor, toMillis(e.At))
	return err
}

// ListAudit returns the audit trail of a candidate, oldest first. Entries
// outlive the candidate itself.
func (q *Queries) ListAudit(ctx context.Context, candidateID string) ([]models.AuditEntry, error) {
	rows, err := q.query(ctx, "list audit", `
		SELECT id, entity, entity_id, operation, from_status, to_status, actor, at
		FROM audit_log WHERE candidate_id = ? ORDER BY at, id`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var (
			e  models.AuditEntry
			at int64
		)
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Operation, &e.FromStatus,
			&e.ToStatus, &e.Actor, &at); err != nil {
			return nil, classify("scan audit", err)
		}
		e.At = fromMillis(at)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list audit", err)
	}
	return out, nil
}
