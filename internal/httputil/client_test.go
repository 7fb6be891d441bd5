package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadSendsMultipartFile(t *testing.T) {
	mock := NewMockHTTPClient().AddResponse(http.StatusCreated, `{"dataset":{"id":"abc"}}`)
	c := NewUploadClient("http://example.com/", mock)

	body, err := c.Upload(context.Background(), "plant.csv", strings.NewReader("Equipment Name,Type\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"dataset":{"id":"abc"}}`, string(body))

	require.Equal(t, 1, mock.RequestCount())
	req := mock.Requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "http://example.com/api/datasets/upload", req.URL.String())

	file, header, err := req.FormFile("file")
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "plant.csv", header.Filename)
	content, _ := io.ReadAll(file)
	assert.Equal(t, "Equipment Name,Type\n", string(content))
}

func TestUploadReturnsStatusError(t *testing.T) {
	mock := NewMockHTTPClient().AddResponse(http.StatusBadRequest, `{"error":"missing required columns: Type","type":"missing_columns"}`)
	c := NewUploadClient("http://example.com", mock)

	_, err := c.Upload(context.Background(), "plant.csv", strings.NewReader(""))
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)
	assert.Equal(t, "missing required columns: Type", serr.Message)
	assert.Contains(t, serr.Error(), "400")
}

func TestStatusErrorWithoutJSON(t *testing.T) {
	mock := NewMockHTTPClient().AddResponse(http.StatusBadGateway, "upstream down")
	_, err := NewUploadClient("http://example.com", mock).Report(context.Background(), "abc", "pdf")
	assert.EqualError(t, err, "server returned 502")
}

func TestUploadTransportError(t *testing.T) {
	mock := NewMockHTTPClient().AddErrorResponse(errors.New("connection refused"))
	_, err := NewUploadClient("http://example.com", mock).Upload(context.Background(), "a.csv", strings.NewReader("x"))
	assert.EqualError(t, err, "connection refused")
}

func TestReportAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/datasets/abc/report", r.URL.Path)
		assert.Equal(t, "xlsx", r.URL.Query().Get("format"))
		WriteAttachment(w, "application/octet-stream", "equipment_report_abc.xlsx", []byte("PK"))
	}))
	defer srv.Close()

	data, err := NewUploadClient(srv.URL, nil).Report(context.Background(), "abc", "xlsx")
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), data)
}

func TestMockDrainedQueue(t *testing.T) {
	mock := NewMockHTTPClient()
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	resp, err := mock.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
