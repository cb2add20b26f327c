package chihttp

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/domain"
	healthuc "github.com/lorekeep/novelrag/internal/usecase/health"
)

type mockIngestor struct {
	gotDocumentID string
	gotFilename   string
	gotText       string
	gotChunkSize  int
	gotOverlap    int
	total         int
}

func (m *mockIngestor) Launch(
	_ context.Context, documentID, filename, text string, chunkSize, overlap int,
) int {
	m.gotDocumentID = documentID
	m.gotFilename = filename
	m.gotText = text
	m.gotChunkSize = chunkSize
	m.gotOverlap = overlap
	return m.total
}

type mockJobReader struct {
	getFn    func(documentID string) (domain.JobStatus, error)
	latestFn func() domain.JobStatus
}

func (m *mockJobReader) Get(documentID string) (domain.JobStatus, error) {
	return m.getFn(documentID)
}

func (m *mockJobReader) Latest() domain.JobStatus { return m.latestFn() }

type mockAsker struct {
	askFn func(ctx context.Context, question, documentID string) (<-chan domain.StreamEvent, error)
}

func (m *mockAsker) Ask(
	ctx context.Context, question, documentID string,
) (<-chan domain.StreamEvent, error) {
	return m.askFn(ctx, question, documentID)
}

type mockDocumentStore struct {
	listFn      func(ctx context.Context) ([]domain.DocumentInfo, error)
	deleteOneFn func(ctx context.Context, documentID string) (int, error)
	deleteAllFn func(ctx context.Context) (int, error)
}

func (m *mockDocumentStore) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	return m.listFn(ctx)
}

func (m *mockDocumentStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	return m.deleteOneFn(ctx, documentID)
}

func (m *mockDocumentStore) DeleteAll(ctx context.Context) (int, error) {
	return m.deleteAllFn(ctx)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type serverMocks struct {
	ingest    *mockIngestor
	jobs      *mockJobReader
	answers   *mockAsker
	documents *mockDocumentStore
	health    *mockHealth
}

func newTestRouter(t *testing.T) (http.Handler, *serverMocks) {
	t.Helper()

	mocks := &serverMocks{
		ingest: &mockIngestor{total: 1},
		jobs: &mockJobReader{
			getFn: func(string) (domain.JobStatus, error) {
				return domain.JobStatus{}, domain.ErrJobNotFound
			},
			latestFn: func() domain.JobStatus { return domain.JobStatus{State: domain.JobIdle} },
		},
		answers: &mockAsker{
			askFn: func(context.Context, string, string) (<-chan domain.StreamEvent, error) {
				events := make(chan domain.StreamEvent)
				close(events)
				return events, nil
			},
		},
		documents: &mockDocumentStore{
			listFn:      func(context.Context) ([]domain.DocumentInfo, error) { return nil, nil },
			deleteOneFn: func(context.Context, string) (int, error) { return 0, nil },
			deleteAllFn: func(context.Context) (int, error) { return 0, nil },
		},
		health: &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, LLMOK: true, StoreOK: true}},
	}

	srv := NewServer(mocks.ingest, mocks.jobs, mocks.answers, mocks.documents, mocks.health, zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)
	return r, mocks
}

// multipartUpload builds a multipart request body with one file field.
func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func doRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
