package upload

import (
	"transfer-manager-api/internal/application/ports"
	"transfer-manager-api/internal/domain/session"
)

func ToInitiateSingleCommand(r InitiateSingleRequest, tenantID, organizationID int64) ports.InitiateSingleCommand {
	return ports.InitiateSingleCommand{
		IdempotencyKey: r.IdempotencyKey,
		TenantID:       tenantID,
		OrganizationID: organizationID,
		FileName:       r.FileName,
		ContentType:    r.ContentType,
		SizeBytes:      r.SizeBytes,
	}
}

func ToInitiateMultipartCommand(r InitiateMultipartRequest, tenantID, organizationID int64) ports.InitiateMultipartCommand {
	return ports.InitiateMultipartCommand{
		TenantID:       tenantID,
		OrganizationID: organizationID,
		FileName:       r.FileName,
		ContentType:    r.ContentType,
		SizeBytes:      r.SizeBytes,
		TotalParts:     r.TotalParts,
		PartSize:       r.PartSize,
	}
}

func ToResponseSingle(s *session.Single) SingleSession {
	return SingleSession{
		SessionID:    s.ID,
		Status:       string(s.Status),
		Bucket:       s.Bucket,
		StorageKey:   s.StorageKey,
		PresignedURL: s.PresignedURL,
		ExpiresAt:    s.ExpiresAt.Unix(),
	}
}

func ToResponseMultipart(m *session.Multipart) MultipartSession {
	return MultipartSession{
		SessionID:  m.ID,
		Status:     string(m.Status),
		Bucket:     m.Bucket,
		StorageKey: m.StorageKey,
		TotalParts: m.TotalParts,
		PartSize:   m.PartSize,
		ExpiresAt:  m.ExpiresAt.Unix(),
	}
}

func ToResponsePart(p session.CompletedPart) Part {
	return Part{
		PartNumber: p.PartNumber,
		ETag:       p.ETag,
		SizeBytes:  p.SizeBytes,
	}
}

func ToResponseStatus(v *ports.SessionView) SessionStatus {
	return SessionStatus{
		SessionID:     v.SessionID,
		Kind:          v.Kind,
		Status:        string(v.Status),
		FileName:      v.FileName,
		Bucket:        v.Bucket,
		StorageKey:    v.StorageKey,
		PartsRecorded: v.PartsRecorded,
		TotalParts:    v.TotalParts,
		ExpiresAt:     v.ExpiresAt,
	}
}
