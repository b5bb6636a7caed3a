package store

// schemaSQL is portable between SQLite and PostgreSQL. Timestamps are Unix
// milliseconds; list and document columns hold JSON text.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS candidates (
	id               TEXT PRIMARY KEY,
	first_name       TEXT NOT NULL DEFAULT '',
	last_name        TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL,
	email_normalized TEXT NOT NULL,
	phone            TEXT NOT NULL DEFAULT '',
	position         TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL DEFAULT '',
	notes            TEXT NOT NULL DEFAULT '',
	skills           TEXT NOT NULL DEFAULT '[]',
	cv_reference     TEXT,
	status           TEXT NOT NULL,
	created_at       BIGINT NOT NULL,
	updated_at       BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_candidates_email ON candidates(email_normalized);
CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);

CREATE TABLE IF NOT EXISTS interviews (
	id             TEXT PRIMARY KEY,
	candidate_id   TEXT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
	interview_date BIGINT NOT NULL,
	interview_type TEXT NOT NULL DEFAULT '',
	interviewers   TEXT NOT NULL DEFAULT '[]',
	meeting_link   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	feedback       TEXT,
	created_at     BIGINT NOT NULL,
	updated_at     BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interviews_candidate ON interviews(candidate_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_interviews_one_scheduled
	ON interviews(candidate_id) WHERE status = 'scheduled';

CREATE TABLE IF NOT EXISTS audit_log (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	entity       TEXT NOT NULL,
	entity_id    TEXT NOT NULL,
	operation    TEXT NOT NULL,
	from_status  TEXT NOT NULL DEFAULT '',
	to_status    TEXT NOT NULL DEFAULT '',
	actor        TEXT NOT NULL DEFAULT '',
	at           BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_candidate ON audit_log(candidate_id, at);
`
