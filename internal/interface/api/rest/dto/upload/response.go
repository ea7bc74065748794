package upload

import "github.com/google/uuid"

type (
	SingleSession struct {
		SessionID    uuid.UUID `json:"session_id"`
		Status       string    `json:"status"`
		Bucket       string    `json:"bucket"`
		StorageKey   string    `json:"storage_key"`
		PresignedURL string    `json:"presigned_url"`
		ExpiresAt    int64     `json:"expires_at"`
	}

	MultipartSession struct {
		SessionID  uuid.UUID `json:"session_id"`
		Status     string    `json:"status"`
		Bucket     string    `json:"bucket"`
		StorageKey string    `json:"storage_key"`
		TotalParts int       `json:"total_parts"`
		PartSize   int64     `json:"part_size"`
		ExpiresAt  int64     `json:"expires_at"`
	}

	Part struct {
		PartNumber int    `json:"part_number"`
		ETag       string `json:"etag"`
		SizeBytes  int64  `json:"size_bytes"`
	}

	SessionStatus struct {
		SessionID     uuid.UUID `json:"session_id"`
		Kind          string    `json:"kind"`
		Status        string    `json:"status"`
		FileName      string    `json:"file_name"`
		Bucket        string    `json:"bucket"`
		StorageKey    string    `json:"storage_key"`
		PartsRecorded int       `json:"parts_recorded,omitempty"`
		TotalParts    int       `json:"total_parts,omitempty"`
		ExpiresAt     int64     `json:"expires_at"`
	}
)
