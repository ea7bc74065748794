package session

import (
	domain "transfer-manager-api/internal/domain/session"
)

func fromSingleModel(model *Single) *domain.Single {
	return &domain.Single{
		Meta: domain.Meta{
			ID:             model.ID,
			TenantID:       model.TenantID,
			OrganizationID: model.OrganizationID,
			FileMeta: domain.FileMeta{
				FileName:    model.FileName,
				ContentType: model.ContentType,
				SizeBytes:   model.SizeBytes,
			},
			StorageTarget: domain.StorageTarget{
				Bucket:     model.Bucket,
				StorageKey: model.StorageKey,
			},
			Status:    domain.Status(model.Status),
			CreatedAt: model.CreatedAt,
			UpdatedAt: model.UpdatedAt,
			ExpiresAt: model.ExpiresAt,
			Version:   model.Version,
		},
		IdempotencyKey: model.IdempotencyKey,
		PresignedURL:   model.PresignedURL,
		ETag:           model.ETag,
	}
}

func fromMultipartModel(model *Multipart, parts []CompletedPart) *domain.Multipart {
	m := &domain.Multipart{
		Meta: domain.Meta{
			ID:             model.ID,
			TenantID:       model.TenantID,
			OrganizationID: model.OrganizationID,
			FileMeta: domain.FileMeta{
				FileName:    model.FileName,
				ContentType: model.ContentType,
				SizeBytes:   model.SizeBytes,
			},
			StorageTarget: domain.StorageTarget{
				Bucket:     model.Bucket,
				StorageKey: model.StorageKey,
			},
			Status:    domain.Status(model.Status),
			CreatedAt: model.CreatedAt,
			UpdatedAt: model.UpdatedAt,
			ExpiresAt: model.ExpiresAt,
			Version:   model.Version,
		},
		UploadID:   model.UploadID,
		TotalParts: model.TotalParts,
		PartSize:   model.PartSize,
		FinalETag:  model.FinalETag,
	}
	for _, p := range parts {
		m.Parts = append(m.Parts, domain.CompletedPart{
			PartNumber: p.PartNumber,
			ETag:       p.ETag,
			SizeBytes:  p.SizeBytes,
			UploadedAt: p.UploadedAt,
		})
	}
	return m
}
