package session

const (
	InsertSingle = `
		INSERT INTO single_upload_sessions
		  (id, idempotency_key, tenant_id, organization_id, file_name, content_type, size_bytes,
		   bucket, storage_key, presigned_url, etag, status, created_at, updated_at, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
	`
	SelectSingleByID = `
		SELECT id, idempotency_key, tenant_id, organization_id, file_name, content_type, size_bytes,
		       bucket, storage_key, presigned_url, etag, status, created_at, updated_at, expires_at, version
		FROM single_upload_sessions
		WHERE id = $1
	`
	SelectSingleByIdempotencyKey = `
		SELECT id, idempotency_key, tenant_id, organization_id, file_name, content_type, size_bytes,
		       bucket, storage_key, presigned_url, etag, status, created_at, updated_at, expires_at, version
		FROM single_upload_sessions
		WHERE idempotency_key = $1
	`
	UpdateSingle = `
		UPDATE single_upload_sessions
		SET status = $2, etag = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND version = $5
	`

	InsertMultipart = `
		INSERT INTO multipart_upload_sessions
		  (id, tenant_id, organization_id, file_name, content_type, size_bytes,
		   bucket, storage_key, upload_id, total_parts, part_size, final_etag, status,
		   created_at, updated_at, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)
	`
	SelectMultipartByID = `
		SELECT id, tenant_id, organization_id, file_name, content_type, size_bytes,
		       bucket, storage_key, upload_id, total_parts, part_size, final_etag, status,
		       created_at, updated_at, expires_at, version
		FROM multipart_upload_sessions
		WHERE id = $1
	`
	UpdateMultipart = `
		UPDATE multipart_upload_sessions
		SET status = $2, final_etag = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND version = $5
	`

	InsertCompletedPart = `
		INSERT INTO completed_parts (session_id, part_number, etag, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	SelectCompletedParts = `
		SELECT session_id, part_number, etag, size_bytes, uploaded_at
		FROM completed_parts
		WHERE session_id = $1
		ORDER BY part_number
	`

	SelectExpiredSingles = `
		SELECT id, idempotency_key, tenant_id, organization_id, file_name, content_type, size_bytes,
		       bucket, storage_key, presigned_url, etag, status, created_at, updated_at, expires_at, version
		FROM single_upload_sessions
		WHERE status IN ('PENDING', 'IN_PROGRESS') AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`
	SelectExpiredMultiparts = `
		SELECT id, tenant_id, organization_id, file_name, content_type, size_bytes,
		       bucket, storage_key, upload_id, total_parts, part_size, final_etag, status,
		       created_at, updated_at, expires_at, version
		FROM multipart_upload_sessions
		WHERE status IN ('PENDING', 'IN_PROGRESS') AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`
)
