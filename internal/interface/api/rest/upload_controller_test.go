package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"transfer-manager-api/internal/application/ports"
	domain "transfer-manager-api/internal/domain/session"
	jwtSvc "transfer-manager-api/internal/infrastructure/jwt"
	"transfer-manager-api/internal/interface/api/rest/dto/upload"
)

type FakeUploadService struct {
	InitiateSingleFunc    func(ctx context.Context, cmd ports.InitiateSingleCommand) (*domain.Single, error)
	InitiateMultipartFunc func(ctx context.Context, cmd ports.InitiateMultipartCommand) (*domain.Multipart, error)
	RecordPartFunc        func(ctx context.Context, cmd ports.RecordPartCommand) (domain.CompletedPart, error)
	CompleteFunc          func(ctx context.Context, sessionID uuid.UUID, etag string) (*ports.SessionView, error)
	CancelFunc            func(ctx context.Context, sessionID uuid.UUID) error
	GetStatusFunc         func(ctx context.Context, sessionID uuid.UUID) (*ports.SessionView, error)
	ExpireSessionsFunc    func(ctx context.Context) (int, error)
}

func (f *FakeUploadService) InitiateSingle(ctx context.Context, cmd ports.InitiateSingleCommand) (*domain.Single, error) {
	if f.InitiateSingleFunc == nil {
		return nil, errors.New("not used")
	}
	return f.InitiateSingleFunc(ctx, cmd)
}
func (f *FakeUploadService) InitiateMultipart(ctx context.Context, cmd ports.InitiateMultipartCommand) (*domain.Multipart, error) {
	if f.InitiateMultipartFunc == nil {
		return nil, errors.New("not used")
	}
	return f.InitiateMultipartFunc(ctx, cmd)
}
func (f *FakeUploadService) RecordPart(ctx context.Context, cmd ports.RecordPartCommand) (domain.CompletedPart, error) {
	if f.RecordPartFunc == nil {
		return domain.CompletedPart{}, errors.New("not used")
	}
	return f.RecordPartFunc(ctx, cmd)
}
func (f *FakeUploadService) Complete(ctx context.Context, sessionID uuid.UUID, etag string) (*ports.SessionView, error) {
	if f.CompleteFunc == nil {
		return nil, errors.New("not used")
	}
	return f.CompleteFunc(ctx, sessionID, etag)
}
func (f *FakeUploadService) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	if f.CancelFunc == nil {
		return errors.New("not used")
	}
	return f.CancelFunc(ctx, sessionID)
}
func (f *FakeUploadService) GetStatus(ctx context.Context, sessionID uuid.UUID) (*ports.SessionView, error) {
	if f.GetStatusFunc == nil {
		return nil, errors.New("not used")
	}
	return f.GetStatusFunc(ctx, sessionID)
}
func (f *FakeUploadService) ExpireSessions(ctx context.Context) (int, error) {
	if f.ExpireSessionsFunc == nil {
		return 0, errors.New("not used")
	}
	return f.ExpireSessionsFunc(ctx)
}

func setupUploadRouter(t *testing.T, us ports.UploadService) (*gin.Engine, *jwtSvc.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	j := jwtSvc.New("test-secret")
	NewUploadController(r, us, zap.NewNop(), j)
	return r, j
}

func doReq(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf *bytes.Reader
	switch v := body.(type) {
	case nil:
		buf = bytes.NewReader(nil)
	case string:
		buf = bytes.NewReader([]byte(v))
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func authHeader(t *testing.T, j *jwtSvc.Service) map[string]string {
	t.Helper()
	tok, err := j.GenerateJWT(1, 2, "worker", time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func someSingle() *domain.Single {
	now := time.Now()
	return &domain.Single{
		Meta: domain.Meta{
			ID:             uuid.Must(uuid.NewV7()),
			TenantID:       1,
			OrganizationID: 2,
			FileMeta: domain.FileMeta{
				FileName:    "report.pdf",
				ContentType: "application/pdf",
				SizeBytes:   1024,
			},
			StorageTarget: domain.StorageTarget{
				Bucket:     "transfer-uploads",
				StorageKey: "uploads/1/2/report.pdf",
			},
			Status:    domain.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: now.Add(15 * time.Minute),
		},
		IdempotencyKey: "client-key-1",
		PresignedURL:   "https://store.local/uploads/report.pdf?sig=abc",
	}
}

func validSingleRequest() upload.InitiateSingleRequest {
	return upload.InitiateSingleRequest{
		IdempotencyKey: "client-key-1",
		FileName:       "report.pdf",
		ContentType:    "application/pdf",
		SizeBytes:      1024,
	}
}

func TestUploadController_InitiateSingleHandler(t *testing.T) {
	tests := []struct {
		name       string
		withAuth   bool
		body       any
		mockUS     func() ports.UploadService
		wantStatus int
		wantErr    string
	}{
		{
			name:       "401 missing auth header",
			withAuth:   false,
			body:       validSingleRequest(),
			mockUS:     func() ports.UploadService { return &FakeUploadService{} },
			wantStatus: http.StatusUnauthorized,
			wantErr:    "missing Authorization header",
		},
		{
			name:       "400 invalid JSON",
			withAuth:   true,
			body:       "{bad json",
			mockUS:     func() ports.UploadService { return &FakeUploadService{} },
			wantStatus: http.StatusBadRequest,
			wantErr:    "invalid request body",
		},
		{
			name:     "400 validation error",
			withAuth: true,
			body: upload.InitiateSingleRequest{
				IdempotencyKey: "",
				FileName:       "",
				SizeBytes:      -1,
			},
			mockUS:     func() ports.UploadService { return &FakeUploadService{} },
			wantStatus: http.StatusBadRequest,
			wantErr:    "invalid request body",
		},
		{
			name:     "500 service error",
			withAuth: true,
			body:     validSingleRequest(),
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					InitiateSingleFunc: func(ctx context.Context, cmd ports.InitiateSingleCommand) (*domain.Single, error) {
						return nil, errors.New("db error")
					},
				}
			},
			wantStatus: http.StatusInternalServerError,
			wantErr:    "upload operation failed",
		},
		{
			name:     "201 success carries claims into the command",
			withAuth: true,
			body:     validSingleRequest(),
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					InitiateSingleFunc: func(ctx context.Context, cmd ports.InitiateSingleCommand) (*domain.Single, error) {
						assert.Equal(t, int64(1), cmd.TenantID)
						assert.Equal(t, int64(2), cmd.OrganizationID)
						assert.Equal(t, "client-key-1", cmd.IdempotencyKey)
						return someSingle(), nil
					},
				}
			},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, j := setupUploadRouter(t, tt.mockUS())
			var headers map[string]string
			if tt.withAuth {
				headers = authHeader(t, j)
			}
			rr := doReq(t, r, http.MethodPost, RouteUploadsSingle, tt.body, headers)
			require.Equal(t, tt.wantStatus, rr.Code)

			if tt.wantErr != "" {
				var resp map[string]any
				_ = json.Unmarshal(rr.Body.Bytes(), &resp)
				assert.Equal(t, tt.wantErr, resp["error"])
			}
		})
	}
}

func TestUploadController_RecordPartHandler(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	tests := []struct {
		name       string
		sessionID  string
		body       any
		mockUS     func() ports.UploadService
		wantStatus int
		wantErr    string
	}{
		{
			name:       "400 invalid uuid",
			sessionID:  "not-a-uuid",
			body:       upload.RecordPartRequest{PartNumber: 1, ETag: "aaa", SizeBytes: 5},
			mockUS:     func() ports.UploadService { return &FakeUploadService{} },
			wantStatus: http.StatusBadRequest,
			wantErr:    "session_id must be a valid UUID",
		},
		{
			name:      "409 tag mismatch",
			sessionID: id.String(),
			body:      upload.RecordPartRequest{PartNumber: 1, ETag: "bbb", SizeBytes: 5},
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					RecordPartFunc: func(ctx context.Context, cmd ports.RecordPartCommand) (domain.CompletedPart, error) {
						return domain.CompletedPart{}, &domain.PartConflictError{
							PartNumber: 1, RecordedTag: "aaa", AttemptedTag: "bbb",
						}
					},
				}
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:      "404 session not found",
			sessionID: id.String(),
			body:      upload.RecordPartRequest{PartNumber: 1, ETag: "aaa", SizeBytes: 5},
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					RecordPartFunc: func(ctx context.Context, cmd ports.RecordPartCommand) (domain.CompletedPart, error) {
						return domain.CompletedPart{}, domain.ErrNotFound
					},
				}
			},
			wantStatus: http.StatusNotFound,
			wantErr:    "upload session not found",
		},
		{
			name:      "200 success",
			sessionID: id.String(),
			body:      upload.RecordPartRequest{PartNumber: 1, ETag: "aaa", SizeBytes: 5},
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					RecordPartFunc: func(ctx context.Context, cmd ports.RecordPartCommand) (domain.CompletedPart, error) {
						assert.Equal(t, id, cmd.SessionID)
						return domain.CompletedPart{PartNumber: 1, ETag: "aaa", SizeBytes: 5, UploadedAt: time.Now()}, nil
					},
				}
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, j := setupUploadRouter(t, tt.mockUS())
			path := RouteUploads + "/" + tt.sessionID + "/parts"
			rr := doReq(t, r, http.MethodPost, path, tt.body, authHeader(t, j))
			require.Equal(t, tt.wantStatus, rr.Code)

			if tt.wantErr != "" {
				var resp map[string]any
				_ = json.Unmarshal(rr.Body.Bytes(), &resp)
				assert.Equal(t, tt.wantErr, resp["error"])
			}
		})
	}
}

func TestUploadController_CompleteHandler(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	tests := []struct {
		name       string
		body       any
		mockUS     func() ports.UploadService
		wantStatus int
		wantErr    string
	}{
		{
			name: "409 stale version",
			body: nil,
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					CompleteFunc: func(ctx context.Context, sessionID uuid.UUID, etag string) (*ports.SessionView, error) {
						return nil, domain.ErrStaleVersion
					},
				}
			},
			wantStatus: http.StatusConflict,
			wantErr:    "concurrent modification, retry the request",
		},
		{
			name: "200 success passes the confirmed etag",
			body: upload.CompleteRequest{ETag: "confirmed-etag"},
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					CompleteFunc: func(ctx context.Context, sessionID uuid.UUID, etag string) (*ports.SessionView, error) {
						assert.Equal(t, "confirmed-etag", etag)
						return &ports.SessionView{
							SessionID: id,
							Kind:      "SINGLE",
							Status:    domain.StatusCompleted,
						}, nil
					},
				}
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, j := setupUploadRouter(t, tt.mockUS())
			path := RouteUploads + "/" + id.String() + "/complete"
			rr := doReq(t, r, http.MethodPost, path, tt.body, authHeader(t, j))
			require.Equal(t, tt.wantStatus, rr.Code)

			if tt.wantErr != "" {
				var resp map[string]any
				_ = json.Unmarshal(rr.Body.Bytes(), &resp)
				assert.Equal(t, tt.wantErr, resp["error"])
			}
		})
	}
}

func TestUploadController_CompleteHandler_MissingParts(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	r, j := setupUploadRouter(t, &FakeUploadService{
		CompleteFunc: func(ctx context.Context, sessionID uuid.UUID, etag string) (*ports.SessionView, error) {
			return nil, &domain.IncompleteError{Missing: []int{2, 3}}
		},
	})

	rr := doReq(t, r, http.MethodPost, RouteUploads+"/"+id.String()+"/complete", nil, authHeader(t, j))
	require.Equal(t, http.StatusConflict, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []any{float64(2), float64(3)}, resp["missing_parts"])
}

func TestUploadController_CancelHandler(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	tests := []struct {
		name       string
		mockUS     func() ports.UploadService
		wantStatus int
	}{
		{
			name: "409 already terminal",
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					CancelFunc: func(ctx context.Context, sessionID uuid.UUID) error {
						return &domain.ConflictError{Current: domain.StatusCompleted, Attempted: "cancel"}
					},
				}
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "204 success",
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					CancelFunc: func(ctx context.Context, sessionID uuid.UUID) error { return nil },
				}
			},
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, j := setupUploadRouter(t, tt.mockUS())
			rr := doReq(t, r, http.MethodPost, RouteUploads+"/"+id.String()+"/cancel", nil, authHeader(t, j))
			require.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestUploadController_GetStatusHandler(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	tests := []struct {
		name       string
		sessionID  string
		mockUS     func() ports.UploadService
		wantStatus int
		wantErr    string
	}{
		{
			name:       "400 invalid uuid",
			sessionID:  "not-a-uuid",
			mockUS:     func() ports.UploadService { return &FakeUploadService{} },
			wantStatus: http.StatusBadRequest,
			wantErr:    "session_id must be a valid UUID",
		},
		{
			name:      "404 not found",
			sessionID: id.String(),
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					GetStatusFunc: func(ctx context.Context, sessionID uuid.UUID) (*ports.SessionView, error) {
						return nil, domain.ErrNotFound
					},
				}
			},
			wantStatus: http.StatusNotFound,
			wantErr:    "upload session not found",
		},
		{
			name:      "200 success without auth",
			sessionID: id.String(),
			mockUS: func() ports.UploadService {
				return &FakeUploadService{
					GetStatusFunc: func(ctx context.Context, sessionID uuid.UUID) (*ports.SessionView, error) {
						return &ports.SessionView{
							SessionID:     id,
							Kind:          "MULTIPART",
							Status:        domain.StatusInProgress,
							PartsRecorded: 2,
							TotalParts:    3,
						}, nil
					},
				}
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupUploadRouter(t, tt.mockUS())
			rr := doReq(t, r, http.MethodGet, RouteUploads+"/"+tt.sessionID, nil, nil)
			require.Equal(t, tt.wantStatus, rr.Code)

			if tt.wantErr != "" {
				var resp map[string]any
				_ = json.Unmarshal(rr.Body.Bytes(), &resp)
				assert.Equal(t, tt.wantErr, resp["error"])
			}
		})
	}
}

func TestUploadController_InitiateMultipartHandler_PartCeiling(t *testing.T) {
	r, j := setupUploadRouter(t, &FakeUploadService{
		InitiateMultipartFunc: func(ctx context.Context, cmd ports.InitiateMultipartCommand) (*domain.Multipart, error) {
			return nil, &domain.ValidationError{Field: "total_parts", Reason: "exceeds the maximum of 100"}
		},
	})

	body := upload.InitiateMultipartRequest{
		FileName:   "huge.iso",
		SizeBytes:  1 << 30,
		TotalParts: 101,
		PartSize:   1 << 20,
	}
	rr := doReq(t, r, http.MethodPost, RouteUploadsMultipart, body, authHeader(t, j))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "total_parts")
}
