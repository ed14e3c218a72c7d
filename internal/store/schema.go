// internal/store/schema.go
//
// Table definitions for the forms store.
//
// Context
// -------
// Two tables live in the service database:
//
//	form           (id PK, owner_id, definition columns, fields JSON)
//	form_response  (id PK, form_id FK → form.id ON DELETE CASCADE, values JSON)
//
// Fields are stored in the flattened shape (`form.PersistedField`) as one
// JSON array; responses keep the cleaned payload as one JSON object.  The
// statements are idempotent, so the forms component returns them from
// Migrations() and cmd/web applies them on every start.
//
// Notes
// -----
// • utf8mb4 throughout; labels and answers are free text.
// • Oxford commas, two spaces after periods.

package store

// Schema lists the DDL statements in dependency order.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS form (
		id                         CHAR(36)      NOT NULL PRIMARY KEY,
		owner_id                   VARCHAR(64)   NOT NULL,
		name                       VARCHAR(100)  NOT NULL,
		description                VARCHAR(500)  NOT NULL DEFAULT '',
		password_hash              VARCHAR(60)   NULL,
		fields                     JSON          NOT NULL,
		expires_at                 DATETIME(6)   NULL,
		max_responses              INT           NULL,
		allow_multiple_submissions BOOLEAN       NOT NULL DEFAULT FALSE,
		success_message            TEXT          NOT NULL,
		is_active                  BOOLEAN       NOT NULL DEFAULT TRUE,
		created_at                 DATETIME(6)   NOT NULL,
		updated_at                 DATETIME(6)   NOT NULL,
		KEY idx_form_owner (owner_id, updated_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS form_response (
		id           CHAR(36)     NOT NULL PRIMARY KEY,
		form_id      CHAR(36)     NOT NULL,
		answers      JSON         NOT NULL,
		fingerprint  CHAR(64)     NOT NULL DEFAULT '',
		respondent   JSON         NULL,
		created_at   DATETIME(6)  NOT NULL,
		updated_at   DATETIME(6)  NOT NULL,
		KEY idx_response_form (form_id, created_at),
		KEY idx_response_fingerprint (form_id, fingerprint),
		CONSTRAINT fk_response_form FOREIGN KEY (form_id)
			REFERENCES form (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
