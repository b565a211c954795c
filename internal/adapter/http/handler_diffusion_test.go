package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/girrex/suivi/internal/domain"
)

type MockDiffusionUseCase struct {
	mock.Mock
}

func (m *MockDiffusionUseCase) Diffuse(ctx context.Context, req domain.DiffusionRequest) (*domain.DiffusionResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*domain.DiffusionResult)
	return result, args.Error(1)
}

func TestDiffusionHandler_CreateDiffusion(t *testing.T) {
	uc := new(MockDiffusionUseCase)
	uc.On("Diffuse", mock.Anything, mock.MatchedBy(func(req domain.DiffusionRequest) bool {
		return req.InitiatorID == "alice" &&
			req.Source != nil && req.Source.FollowUpRef().Kind == domain.SourceDocument &&
			req.Mode == domain.DiffusionAcknowledgement &&
			len(req.ScopeCodes) == 2 &&
			len(req.RecipientIDs) == 1 &&
			!req.Direct
	})).Return(&domain.DiffusionResult{
		Mother:     &domain.Action{ID: "m-1", Number: "DOC-NAT-2026-0001"},
		Unresolved: []string{"LFMN"},
	}, nil)

	body := `{"source":{"kind":"DOCUMENT","id":"doc-1","label":"PRO-12 v3"},"mode":"ACKNOWLEDGEMENT",
		"title":"New procedure","scopes":["LFBO","LFMN"],"recipients":["bob"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/diffusions", bytes.NewBufferString(body))
	rr := serve(Dependencies{Diffusions: uc}, alice, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unresolved":["LFMN"]`)
	uc.AssertExpectations(t)
}

func TestDiffusionHandler_MissingSourceIsPassedAsNil(t *testing.T) {
	uc := new(MockDiffusionUseCase)
	uc.On("Diffuse", mock.Anything, mock.MatchedBy(func(req domain.DiffusionRequest) bool {
		return req.Source == nil
	})).Return(nil, domain.ErrMissingSource)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/diffusions", bytes.NewBufferString(`{"mode":"INFORMATION","scopes":["LFBO"]}`))
	rr := serve(Dependencies{Diffusions: uc}, alice, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, domain.ErrMissingSource.Message, decodeEnvelope(t, rr).Message)
}
