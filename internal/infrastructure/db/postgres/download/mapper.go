package download

import (
	domain "transfer-manager-api/internal/domain/download"
)

func fromDBModel(model *Download) *domain.Download {
	return &domain.Download{
		ID:             model.ID,
		IdempotencyKey: model.IdempotencyKey,
		SourceURL:      model.SourceURL,
		TenantID:       model.TenantID,
		OrganizationID: model.OrganizationID,
		Bucket:         model.Bucket,
		PathPrefix:     model.PathPrefix,
		WebhookURL:     model.WebhookURL,
		Status:         domain.Status(model.Status),
		RetryCount:     model.RetryCount,
		FileAssetID:    model.FileAssetID,
		ErrorMessage:   model.ErrorMessage,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
		Version:        model.Version,
	}
}
