package download

import (
	"transfer-manager-api/internal/application/ports"
	domain "transfer-manager-api/internal/domain/download"
)

func ToRegisterCommand(r RegisterRequest, tenantID, organizationID int64) ports.RegisterDownloadCommand {
	return ports.RegisterDownloadCommand{
		IdempotencyKey: r.IdempotencyKey,
		SourceURL:      r.SourceURL,
		TenantID:       tenantID,
		OrganizationID: organizationID,
		WebhookURL:     r.WebhookURL,
	}
}

func ToResponseDownload(d *domain.Download) Download {
	return Download{
		DownloadID:   d.ID,
		SourceURL:    d.SourceURL,
		Status:       string(d.Status),
		RetryCount:   d.RetryCount,
		FileAssetID:  d.FileAssetID,
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt.Unix(),
	}
}
