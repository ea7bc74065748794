package download

const (
	Insert = `
		INSERT INTO external_downloads
		  (id, idempotency_key, source_url, tenant_id, organization_id, bucket, path_prefix,
		   webhook_url, status, retry_count, file_asset_id, error_message, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
	`
	SelectByID = `
		SELECT id, idempotency_key, source_url, tenant_id, organization_id, bucket, path_prefix,
		       webhook_url, status, retry_count, file_asset_id, error_message, created_at, updated_at, version
		FROM external_downloads
		WHERE id = $1
	`
	SelectByIdempotencyKey = `
		SELECT id, idempotency_key, source_url, tenant_id, organization_id, bucket, path_prefix,
		       webhook_url, status, retry_count, file_asset_id, error_message, created_at, updated_at, version
		FROM external_downloads
		WHERE idempotency_key = $1
	`
	Update = `
		UPDATE external_downloads
		SET status = $2, retry_count = $3, file_asset_id = $4, error_message = $5, updated_at = $6,
		    version = version + 1
		WHERE id = $1 AND version = $7
	`
	SelectRetryable = `
		SELECT id, idempotency_key, source_url, tenant_id, organization_id, bucket, path_prefix,
		       webhook_url, status, retry_count, file_asset_id, error_message, created_at, updated_at, version
		FROM external_downloads
		WHERE status = 'PENDING' AND retry_count > 0 AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2
	`
)
