package rest

const (
	// api
	RouteApiV1 = "/api/v1"

	// uploads
	RouteUploads          = RouteApiV1 + "/uploads"
	RouteUploadsSingle    = RouteUploads + "/single"
	RouteUploadsMultipart = RouteUploads + "/multipart"
	RouteUpload           = RouteUploads + "/:session_id"
	RouteUploadParts      = RouteUpload + "/parts"
	RouteUploadComplete   = RouteUpload + "/complete"
	RouteUploadCancel     = RouteUpload + "/cancel"

	// downloads
	RouteDownloads = RouteApiV1 + "/downloads"
	RouteDownload  = RouteDownloads + "/:download_id"

	// ops
	RouteHealth       = RouteApiV1 + "/healthz"
	RouteMetrics      = RouteApiV1 + "/metrics"
	RouteOutboxReopen = RouteApiV1 + "/outbox/:entry_id/reopen"
)
