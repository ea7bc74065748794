package validator

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"transfer-manager-api/internal/interface/api/rest/dto/download"
	"transfer-manager-api/internal/interface/api/rest/dto/upload"
)

const (
	maxFileNameLen       = 255
	maxIdempotencyKeyLen = 128
)

func IsUUID(s string) (bool, uuid.UUID) {
	id, err := uuid.Parse(s)
	return err == nil, id
}

func ValidateInitiateSingle(r upload.InitiateSingleRequest) map[string]string {
	errs := make(map[string]string)

	validateIdempotencyKey(errs, r.IdempotencyKey, true)
	validateFileMeta(errs, r.FileName, r.SizeBytes)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func ValidateInitiateMultipart(r upload.InitiateMultipartRequest) map[string]string {
	errs := make(map[string]string)

	validateFileMeta(errs, r.FileName, r.SizeBytes)

	if r.TotalParts < 1 {
		errs["total_parts"] = "total_parts must be at least 1"
	}
	if r.PartSize <= 0 {
		errs["part_size"] = "part_size must be positive"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func ValidateRecordPart(r upload.RecordPartRequest) map[string]string {
	errs := make(map[string]string)

	if r.PartNumber < 1 {
		errs["part_number"] = "part_number must be at least 1"
	}
	if strings.TrimSpace(r.ETag) == "" {
		errs["etag"] = "etag is required"
	}
	if r.SizeBytes <= 0 {
		errs["size_bytes"] = "size_bytes must be positive"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func ValidateRegisterDownload(r download.RegisterRequest) map[string]string {
	errs := make(map[string]string)

	validateIdempotencyKey(errs, r.IdempotencyKey, true)

	src := strings.TrimSpace(r.SourceURL)
	if src == "" {
		errs["source_url"] = "source_url is required"
	} else if !isHTTPURL(src) {
		errs["source_url"] = "must be an absolute http(s) URL"
	}

	if hook := strings.TrimSpace(r.WebhookURL); hook != "" && !isHTTPURL(hook) {
		errs["webhook_url"] = "must be an absolute http(s) URL"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateIdempotencyKey(errs map[string]string, key string, required bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		if required {
			errs["idempotency_key"] = "idempotency_key is required"
		}
		return
	}
	if utf8.RuneCountInString(key) > maxIdempotencyKeyLen {
		errs["idempotency_key"] = "idempotency_key is too long"
	}
}

func validateFileMeta(errs map[string]string, fileName string, sizeBytes int64) {
	name := strings.TrimSpace(fileName)
	if name == "" {
		errs["file_name"] = "file_name is required"
	} else if utf8.RuneCountInString(name) > maxFileNameLen {
		errs["file_name"] = "file_name is too long"
	}
	if sizeBytes < 0 {
		errs["size_bytes"] = "size_bytes must not be negative"
	}
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
