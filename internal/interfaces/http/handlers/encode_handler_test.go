package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/SeqQuant/internal/application/encoding"
	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Encode(ctx context.Context, req *encoding.EncodeRequest) (*encoding.LatentResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*encoding.LatentResult)
	return res, args.Error(1)
}

func (m *MockService) Monomers(ctx context.Context, pt string) ([]string, error) {
	args := m.Called(ctx, pt)
	res, _ := args.Get(0).([]string)
	return res, args.Error(1)
}

func (m *MockService) KernelInfo(ctx context.Context, pt string, monomers []polymer.NewMonomerRequest) (*encoding.KernelInfo, error) {
	args := m.Called(ctx, pt, monomers)
	res, _ := args.Get(0).(*encoding.KernelInfo)
	return res, args.Error(1)
}

func (m *MockService) Descriptors(ctx context.Context, smiles string) (*encoding.DescriptorReport, error) {
	args := m.Called(ctx, smiles)
	res, _ := args.Get(0).(*encoding.DescriptorReport)
	return res, args.Error(1)
}

func (m *MockService) Ready(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type EncodeHandlerTestSuite struct {
	suite.Suite
	svc    *MockService
	router chi.Router
}

func (s *EncodeHandlerTestSuite) SetupTest() {
	s.svc = &MockService{}
	h := NewEncodeHandler(EncodeHandlerConfig{Service: s.svc, MaxSequencesPerRequest: 3, MaxBodySize: 256})
	r := chi.NewRouter()
	r.Post("/encode_sequence", h.Encode)
	r.Get("/monomers/{polymer_type}", h.Monomers)
	r.Post("/kernel_info/{polymer_type}", h.KernelInfo)
	r.Get("/descriptors", h.Descriptors)
	s.router = r
}

func (s *EncodeHandlerTestSuite) TearDownTest() {
	s.svc.AssertExpectations(s.T())
}

func (s *EncodeHandlerTestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *EncodeHandlerTestSuite) errorBody(w *httptest.ResponseRecorder) ErrorResponse {
	var resp ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *EncodeHandlerTestSuite) TestEncode_Success() {
	result := encoding.NewLatentResult()
	result.Set("CGX", []float32{0.25, -1})
	result.Set("AC", []float32{1, 2})

	s.svc.On("Encode", mock.Anything, mock.MatchedBy(func(req *encoding.EncodeRequest) bool {
		return len(req.Sequences) == 2 && req.Sequences[0] == "CGX" && req.Sequences[1] == "AC" &&
			req.PolymerType == "protein_for_aptamer" &&
			req.EncodingStrategy == "aptamer" &&
			req.SkipUnprocessable &&
			len(req.NewMonomers) == 1 && req.NewMonomers[0].Name == "X" && req.NewMonomers[0].SMILES == "OC"
	})).Return(result, nil).Once()

	w := s.do(http.MethodPost,
		"/encode_sequence?sequences=CGX,%20AC&polymer_type=protein_for_aptamer&encoding_strategy=aptamer",
		`{"monomers":[{"name":"X","smiles":"OC"}]}`)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(`{"CGX":[0.25,-1],"AC":[1,2]}`, strings.TrimSpace(w.Body.String()))
}

func (s *EncodeHandlerTestSuite) TestEncode_DefaultsWithoutBody() {
	s.svc.On("Encode", mock.Anything, mock.MatchedBy(func(req *encoding.EncodeRequest) bool {
		return req.PolymerType == "" && req.EncodingStrategy == "" && req.SkipUnprocessable && req.NewMonomers == nil
	})).Return(encoding.NewLatentResult(), nil).Once()

	w := s.do(http.MethodPost, "/encode_sequence?sequences=AC", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("{}", strings.TrimSpace(w.Body.String()))
}

func (s *EncodeHandlerTestSuite) TestEncode_StrictMode() {
	s.svc.On("Encode", mock.Anything, mock.MatchedBy(func(req *encoding.EncodeRequest) bool {
		return !req.SkipUnprocessable
	})).Return(nil, errors.New(errors.ErrCodeSequenceTooLong, "sequence exceeds the maximum length").WithDetail("AAAA")).Once()

	w := s.do(http.MethodPost, "/encode_sequence?sequences=AAAA&skip_unprocessable=false", "")
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	resp := s.errorBody(w)
	s.Equal("SEQ_005", resp.Code)
	s.Equal("AAAA", resp.Detail)
}

func (s *EncodeHandlerTestSuite) TestEncode_TooManySequences() {
	w := s.do(http.MethodPost, "/encode_sequence?sequences=A,B,C,D", "")
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	resp := s.errorBody(w)
	s.Equal("SEQ_007", resp.Code)
	s.Equal("4", resp.Detail)
	s.svc.AssertNotCalled(s.T(), "Encode", mock.Anything, mock.Anything)
}

func (s *EncodeHandlerTestSuite) TestEncode_InvalidBool() {
	w := s.do(http.MethodPost, "/encode_sequence?sequences=A&skip_unprocessable=maybe", "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("COMMON_002", s.errorBody(w).Code)
}

func (s *EncodeHandlerTestSuite) TestEncode_InvalidBody() {
	w := s.do(http.MethodPost, "/encode_sequence?sequences=A", `{"monomers":`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("COMMON_011", s.errorBody(w).Code)
}

func (s *EncodeHandlerTestSuite) TestEncode_BodyTooLarge() {
	body := fmt.Sprintf(`{"monomers":[{"name":"X","smiles":"%s"}]}`, strings.Repeat("C", 512))
	w := s.do(http.MethodPost, "/encode_sequence?sequences=A", body)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("COMMON_010", s.errorBody(w).Code)
}

func (s *EncodeHandlerTestSuite) TestEncode_UnknownPolymerType() {
	s.svc.On("Encode", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeUnknownPolymerType, "unknown polymer type")).Once()

	w := s.do(http.MethodPost, "/encode_sequence?sequences=A&polymer_type=XNA", "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("SEQ_001", s.errorBody(w).Code)
}

func (s *EncodeHandlerTestSuite) TestEncode_EncoderNotLoaded() {
	s.svc.On("Encode", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeEncoderNotLoaded, "latent encoder not loaded")).Once()

	w := s.do(http.MethodPost, "/encode_sequence?sequences=A", "")
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal("SEQ_011", s.errorBody(w).Code)
}

func (s *EncodeHandlerTestSuite) TestEncode_UnclassifiedErrorIsMasked() {
	s.svc.On("Encode", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("disk on fire")).Once()

	w := s.do(http.MethodPost, "/encode_sequence?sequences=A", "")
	s.Equal(http.StatusInternalServerError, w.Code)
	resp := s.errorBody(w)
	s.Equal("COMMON_001", resp.Code)
	s.NotContains(w.Body.String(), "disk on fire")
}

func (s *EncodeHandlerTestSuite) TestMonomers() {
	s.svc.On("Monomers", mock.Anything, "DNA").Return([]string{"A", "C", "G", "T"}, nil).Once()

	w := s.do(http.MethodGet, "/monomers/DNA", "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`["A","C","G","T"]`, w.Body.String())
}

func (s *EncodeHandlerTestSuite) TestKernelInfo() {
	info := &encoding.KernelInfo{MaxSequenceLength: 96, NumOfDescriptors: 43, KnownMonomers: []string{"A", "X"}, PolymerType: polymer.PolymerProteinForAptamer}
	s.svc.On("KernelInfo", mock.Anything, "protein_for_aptamer", []polymer.NewMonomerRequest{{Name: "X", SMILES: "OC"}}).
		Return(info, nil).Once()

	w := s.do(http.MethodPost, "/kernel_info/protein_for_aptamer", `{"monomers":[{"name":"X","smiles":"OC"}]}`)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"max_sequence_length":96,"num_of_descriptors":43,"known_monomers":["A","X"],"polymer_type":"protein_for_aptamer"}`, w.Body.String())
}

func (s *EncodeHandlerTestSuite) TestKernelInfo_Conflict() {
	s.svc.On("KernelInfo", mock.Anything, "protein", mock.Anything).
		Return(nil, errors.New(errors.ErrCodeMonomerConflict, "monomer already exists in kernel").WithDetail("A")).Once()

	w := s.do(http.MethodPost, "/kernel_info/protein", `{"monomers":[{"name":"A","smiles":"C"}]}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("SEQ_003", s.errorBody(w).Code)
}

func (s *EncodeHandlerTestSuite) TestDescriptors() {
	s.svc.On("Descriptors", mock.Anything, "CCO").
		Return(&encoding.DescriptorReport{SMILES: "CCO", Names: []string{"MolWt"}, Raw: []float64{46.07}, Scaled: []float64{0.1}}, nil).Once()

	w := s.do(http.MethodGet, "/descriptors?smiles=CCO", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"smiles":"CCO"`)

	w = s.do(http.MethodGet, "/descriptors", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func TestEncodeHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(EncodeHandlerTestSuite))
}
