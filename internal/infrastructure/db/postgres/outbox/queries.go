package outbox

const (
	Insert = `
		INSERT INTO outbox_entries
		  (id, owner_id, event_type, payload, status, retry_count, last_error,
		   lease_owner, lease_until, created_at, updated_at, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	// Claim leases the oldest PENDING entries to one dispatcher.
	// SKIP LOCKED keeps concurrent claimers from blocking each other;
	// the lease keeps an already-claimed row invisible until it lapses.
	Claim = `
		UPDATE outbox_entries
		SET lease_owner = $1, lease_until = $2, updated_at = $3
		WHERE id IN (
			SELECT id FROM outbox_entries
			WHERE status = 'PENDING' AND (lease_until IS NULL OR lease_until < $4)
			ORDER BY created_at
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, owner_id, event_type, payload, status, retry_count, last_error,
		          lease_owner, lease_until, created_at, updated_at, sent_at
	`

	MarkSent = `
		UPDATE outbox_entries
		SET status = $2, sent_at = $3, updated_at = $4, lease_owner = '', lease_until = NULL
		WHERE id = $1 AND lease_owner = $5
	`
	RecordFailure = `
		UPDATE outbox_entries
		SET status = $2, retry_count = $3, last_error = $4, updated_at = $5,
		    lease_owner = '', lease_until = NULL
		WHERE id = $1 AND lease_owner = $6
	`

	SelectByID = `
		SELECT id, owner_id, event_type, payload, status, retry_count, last_error,
		       lease_owner, lease_until, created_at, updated_at, sent_at
		FROM outbox_entries
		WHERE id = $1
	`
	Reopen = `
		UPDATE outbox_entries
		SET status = $2, retry_count = $3, updated_at = $4, lease_owner = '', lease_until = NULL
		WHERE id = $1 AND status = 'FAILED'
	`
)
