package upload

type (
	InitiateSingleRequest struct {
		IdempotencyKey string `json:"idempotency_key"`
		FileName       string `json:"file_name"`
		ContentType    string `json:"content_type"`
		SizeBytes      int64  `json:"size_bytes"`
	}

	InitiateMultipartRequest struct {
		FileName    string `json:"file_name"`
		ContentType string `json:"content_type"`
		SizeBytes   int64  `json:"size_bytes"`
		TotalParts  int    `json:"total_parts"`
		PartSize    int64  `json:"part_size"`
	}

	RecordPartRequest struct {
		PartNumber int    `json:"part_number"`
		ETag       string `json:"etag"`
		SizeBytes  int64  `json:"size_bytes"`
	}

	CompleteRequest struct {
		// ETag is the client-confirmed tag for single uploads; multipart
		// completion takes the final tag from the object store instead.
		ETag string `json:"etag"`
	}
)
