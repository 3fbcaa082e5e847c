package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"slide-capture/internal/domain"
	"slide-capture/internal/dto"
	"slide-capture/internal/handler"
	"slide-capture/internal/middleware"
	"slide-capture/internal/service"
	"slide-capture/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Manual Mocks ---

type MockCaptureService struct {
	ListInteractionsFunc func(deckID, slideID string) ([]*domain.Interaction, error)
	MountFunc            func(ref dto.ScopeParams, studentID string) (*dto.MountStatus, error)
	UnmountFunc          func(ref dto.ScopeParams) (*dto.MountStatus, error)
	EndSessionFunc       func(sessionID string) int
	ActivateFunc         func(ctx context.Context, ref dto.ScopeParams) (*dto.RecordResult, error)
	CompleteFunc         func(ctx context.Context, ref dto.ScopeParams, req *dto.CompleteRequest) (*dto.RecordResult, error)
	UploadFunc           func(ctx context.Context, ref dto.ScopeParams, upload *domain.ImageUpload, isCorrect *bool) (*dto.RecordResult, error)
}

func (m *MockCaptureService) ListInteractions(deckID, slideID string) ([]*domain.Interaction, error) {
	if m.ListInteractionsFunc != nil {
		return m.ListInteractionsFunc(deckID, slideID)
	}
	panic("MockCaptureService.ListInteractionsFunc not implemented")
}
func (m *MockCaptureService) Mount(ref dto.ScopeParams, studentID string) (*dto.MountStatus, error) {
	if m.MountFunc != nil {
		return m.MountFunc(ref, studentID)
	}
	panic("MockCaptureService.MountFunc not implemented")
}
func (m *MockCaptureService) Unmount(ref dto.ScopeParams) (*dto.MountStatus, error) {
	if m.UnmountFunc != nil {
		return m.UnmountFunc(ref)
	}
	panic("MockCaptureService.UnmountFunc not implemented")
}
func (m *MockCaptureService) EndSession(sessionID string) int {
	if m.EndSessionFunc != nil {
		return m.EndSessionFunc(sessionID)
	}
	panic("MockCaptureService.EndSessionFunc not implemented")
}
func (m *MockCaptureService) Activate(ctx context.Context, ref dto.ScopeParams) (*dto.RecordResult, error) {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, ref)
	}
	panic("MockCaptureService.ActivateFunc not implemented")
}
func (m *MockCaptureService) Complete(ctx context.Context, ref dto.ScopeParams, req *dto.CompleteRequest) (*dto.RecordResult, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, ref, req)
	}
	panic("MockCaptureService.CompleteFunc not implemented")
}
func (m *MockCaptureService) Upload(ctx context.Context, ref dto.ScopeParams, upload *domain.ImageUpload, isCorrect *bool) (*dto.RecordResult, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, ref, upload, isCorrect)
	}
	panic("MockCaptureService.UploadFunc not implemented")
}
func (m *MockCaptureService) Scopes() int { return 0 }

const scopePath = "/api/sessions/sess-1/decks/redox/slides/redox-2/interactions/identify-process"

func newTestApp(svc service.CaptureService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	h := handler.NewInteractionHandler(svc)
	app.Get("/healthz", h.Health)
	h.RegisterRoutes(app.Group("/api"), middleware.NewValidationMiddleware(validation.NewValidator()))
	return app
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestInteractionHandler_Complete(t *testing.T) {
	correct := true
	tests := []struct {
		name       string
		body       string
		result     *dto.RecordResult
		err        error
		wantStatus int
	}{
		{
			name:       "recorded",
			body:       `{"value_kind":"single-choice","value":"Reduction"}`,
			result:     &dto.RecordResult{Recorded: true, Response: &domain.InteractionResponse{ID: "01J", Value: domain.SingleChoiceAnswer("Reduction"), IsCorrect: &correct}},
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "rejected candidate",
			body:       `{"value_kind":"multi-select","value":[]}`,
			result:     &dto.RecordResult{Recorded: false},
			wantStatus: fiber.StatusAccepted,
		},
		{
			name:       "not mounted",
			body:       `{"value_kind":"single-choice","value":"Reduction"}`,
			err:        domain.NewNotMountedError("identify-process"),
			wantStatus: fiber.StatusConflict,
		},
		{
			name:       "malformed body",
			body:       `{"value_kind":`,
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReq *dto.CompleteRequest
			var gotRef dto.ScopeParams
			svc := &MockCaptureService{
				CompleteFunc: func(ctx context.Context, ref dto.ScopeParams, req *dto.CompleteRequest) (*dto.RecordResult, error) {
					gotRef, gotReq = ref, req
					return tt.result, tt.err
				},
			}
			req := httptest.NewRequest("POST", scopePath+"/complete", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := newTestApp(svc).Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.result != nil {
				assert.Equal(t, "sess-1", gotRef.SessionID)
				assert.Equal(t, "identify-process", gotRef.InteractionID)
				require.NotNil(t, gotReq)
				out := decode[map[string]interface{}](t, resp)
				assert.Equal(t, tt.result.Recorded, out["recorded"])
			}
		})
	}
}

func TestInteractionHandler_MountUsesStudentFromToken(t *testing.T) {
	svc := &MockCaptureService{
		MountFunc: func(ref dto.ScopeParams, studentID string) (*dto.MountStatus, error) {
			return &dto.MountStatus{InteractionID: ref.InteractionID, Mounted: true, Kind: domain.InteractionJudging}, nil
		},
	}
	resp, err := newTestApp(svc).Test(httptest.NewRequest("POST", scopePath+"/mount", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	status := decode[dto.MountStatus](t, resp)
	assert.True(t, status.Mounted)

	svc.MountFunc = func(ref dto.ScopeParams, studentID string) (*dto.MountStatus, error) {
		return nil, domain.NewInteractionNotFoundError(ref.SlideID, ref.InteractionID)
	}
	resp, err = newTestApp(svc).Test(httptest.NewRequest("POST", scopePath+"/mount", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestInteractionHandler_UploadErrors(t *testing.T) {
	multipartBody := func(t *testing.T, withFile bool) (*bytes.Buffer, string) {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		if withFile {
			fw, err := mw.CreateFormFile("file", "sketch.png")
			require.NoError(t, err)
			_, _ = fw.Write([]byte("not really a png"))
		}
		require.NoError(t, mw.WriteField("is_correct", "true"))
		require.NoError(t, mw.Close())
		return buf, mw.FormDataContentType()
	}

	tests := []struct {
		name       string
		withFile   bool
		err        error
		wantStatus int
	}{
		{"too large", true, domain.NewFileTooLargeError(20<<20, 15<<20), fiber.StatusRequestEntityTooLarge},
		{"decode failure", true, domain.NewImageProcessingError(nil), fiber.StatusUnprocessableEntity},
		{"in progress", true, domain.NewUploadInProgressError("sketch-cell"), fiber.StatusConflict},
		{"missing file", false, nil, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockCaptureService{
				UploadFunc: func(ctx context.Context, ref dto.ScopeParams, upload *domain.ImageUpload, isCorrect *bool) (*dto.RecordResult, error) {
					assert.Equal(t, "sketch.png", upload.Filename)
					if assert.NotNil(t, isCorrect) {
						assert.True(t, *isCorrect)
					}
					return nil, tt.err
				},
			}
			body, contentType := multipartBody(t, tt.withFile)
			req := httptest.NewRequest("POST", scopePath+"/upload", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := newTestApp(svc).Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestInteractionHandler_ListAndEndSession(t *testing.T) {
	svc := &MockCaptureService{
		ListInteractionsFunc: func(deckID, slideID string) ([]*domain.Interaction, error) {
			if slideID != "redox-2" {
				return nil, domain.NewNotFoundError("slide not found")
			}
			return []*domain.Interaction{{ID: "identify-process", Kind: domain.InteractionJudging}}, nil
		},
		EndSessionFunc: func(sessionID string) int { return 3 },
	}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/decks/redox/slides/redox-2/interactions", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[dto.InteractionListResponse](t, resp)
	require.Len(t, list.Interactions, 1)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/decks/redox/slides/nope/interactions", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/sessions/sess-1", nil), -1)
	require.NoError(t, err)
	ended := decode[dto.SessionEndResponse](t, resp)
	assert.Equal(t, 3, ended.Unmounted)
}
