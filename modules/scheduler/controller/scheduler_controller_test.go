package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"group-scheduler/core/constants"
	"group-scheduler/core/errors"
	"group-scheduler/core/realtime"
	"group-scheduler/core/utils"
	"group-scheduler/modules/scheduler/dto"
	"group-scheduler/modules/scheduler/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu          sync.Mutex
	suggestions []entity.Suggestion
	computeErr  *errors.AppError
	created     *dto.CreateProposalRequest
	creatorID   string
	handler     func([]entity.Suggestion)
	subscribed  chan struct{}
}

func (f *fakeService) CreateProposal(_ context.Context, creatorID string, req *dto.CreateProposalRequest) (*dto.ProposalResponse, *errors.AppError) {
	f.creatorID = creatorID
	f.created = req
	return &dto.ProposalResponse{ID: uuid.NewString(), Title: req.Title, CreatorID: creatorID}, nil
}

func (f *fakeService) GetProposal(context.Context, uuid.UUID) (*dto.ProposalResponse, *errors.AppError) {
	return nil, errors.NewAppError(errors.ErrNotFound, "Proposal not found", nil)
}

func (f *fakeService) ListMyProposals(context.Context, string) ([]dto.ProposalResponse, *errors.AppError) {
	return []dto.ProposalResponse{}, nil
}

func (f *fakeService) GetGrid(context.Context, uuid.UUID) (*dto.GridResponse, *errors.AppError) {
	return &dto.GridResponse{}, nil
}

func (f *fakeService) SubmitAvailability(_ context.Context, userID string, id uuid.UUID, req *dto.SubmitAvailabilityRequest) (*dto.SubmissionResponse, *errors.AppError) {
	return &dto.SubmissionResponse{UserID: userID, ProposalID: id.String(), Availability: req.Availability}, nil
}

func (f *fakeService) ComputeAvailability(context.Context, uuid.UUID) ([]entity.Suggestion, *errors.AppError) {
	if f.computeErr != nil {
		return nil, f.computeErr
	}
	return f.suggestions, nil
}

func (f *fakeService) ClearProposalCache(context.Context, uuid.UUID) {}

func (f *fakeService) OnNewSubmission(_ uuid.UUID, handler func([]entity.Suggestion)) (realtime.Unsubscribe, *errors.AppError) {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	if f.subscribed != nil {
		close(f.subscribed)
	}
	return func() {}, nil
}

func (f *fakeService) ListStoredSuggestions(_ context.Context, id uuid.UUID) (*dto.StoredSuggestionsResponse, *errors.AppError) {
	return &dto.StoredSuggestionsResponse{ProposalID: id.String(), Groups: dto.GroupByDate(f.suggestions)}, nil
}

func (f *fakeService) ExportCalendar(context.Context, uuid.UUID) (string, *errors.AppError) {
	return "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", nil
}

func newContext(method, target, body string, claims *utils.TokenClaims) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if claims != nil {
		c.Set(constants.ContextTokenData, claims)
	}
	return c, rec
}

func sampleSuggestions(id uuid.UUID) []entity.Suggestion {
	return []entity.Suggestion{
		{ProposalID: id, SuggestedDate: "2024-06-10", SuggestedStartTime: "10:00:00", SuggestedEndTime: "11:00:00", ParticipantCount: 2, Score: 85},
	}
}

func TestCreateProposalRequiresAuth(t *testing.T) {
	ctrl := NewSchedulerController(&fakeService{})
	c, _ := newContext(http.MethodPost, "/", `{"title":"x"}`, nil)

	err := ctrl.CreateProposal(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestCreateProposal(t *testing.T) {
	svc := &fakeService{}
	ctrl := NewSchedulerController(svc)
	c, rec := newContext(http.MethodPost, "/", `{"title":"Sync","proposed_dates":["2024-06-10"],"duration_minutes":30}`, &utils.TokenClaims{UserID: "alice"})

	require.NoError(t, ctrl.CreateProposal(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", svc.creatorID)
	assert.Equal(t, []string{"2024-06-10"}, svc.created.ProposedDates)
}

func TestGetProposalInvalidID(t *testing.T) {
	ctrl := NewSchedulerController(&fakeService{})
	c, _ := newContext(http.MethodGet, "/", "", nil)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := ctrl.GetProposal(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestGetProposalNotFound(t *testing.T) {
	ctrl := NewSchedulerController(&fakeService{})
	c, rec := newContext(http.MethodGet, "/", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	require.NoError(t, ctrl.GetProposal(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSuggestions(t *testing.T) {
	id := uuid.New()
	ctrl := NewSchedulerController(&fakeService{suggestions: sampleSuggestions(id)})
	c, rec := newContext(http.MethodGet, "/", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	require.NoError(t, ctrl.GetSuggestions(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data dto.SuggestionsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Suggestions, 1)
	assert.Equal(t, 85, body.Data.Suggestions[0].Score)
}

func TestGetSuggestionsFetchError(t *testing.T) {
	ctrl := NewSchedulerController(&fakeService{computeErr: errors.NewAppError(errors.ErrFetchFailed, "Failed to fetch proposal", nil)})
	c, rec := newContext(http.MethodGet, "/", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	require.NoError(t, ctrl.GetSuggestions(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestExportCalendar(t *testing.T) {
	ctrl := NewSchedulerController(&fakeService{})
	c, rec := newContext(http.MethodGet, "/", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	require.NoError(t, ctrl.ExportCalendar(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
}

func TestStreamSuggestions(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{suggestions: sampleSuggestions(id), subscribed: make(chan struct{})}
	ctrl := NewSchedulerController(svc)

	e := echo.New()
	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(reqCtx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	done := make(chan error, 1)
	go func() { done <- ctrl.StreamSuggestions(c) }()

	<-svc.subscribed
	svc.mu.Lock()
	handler := svc.handler
	svc.mu.Unlock()
	handler([]entity.Suggestion{})

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 2, strings.Count(body, "event: suggestions\n"))
	assert.Contains(t, body, `"score":85`)
	assert.Contains(t, body, "data: []\n\n")
}
