package download

import "github.com/google/uuid"

type Download struct {
	DownloadID   uuid.UUID  `json:"download_id"`
	SourceURL    string     `json:"source_url"`
	Status       string     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	FileAssetID  *uuid.UUID `json:"file_asset_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    int64      `json:"created_at"`
}
