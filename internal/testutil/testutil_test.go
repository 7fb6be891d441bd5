package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUploadRequest(t *testing.T) {
	req := NewUploadRequest(t, "/api/datasets/upload", "file", "plant.csv", []byte(SampleCSV))
	assert.Equal(t, http.MethodPost, req.Method)

	require.NoError(t, req.ParseMultipartForm(1<<20))
	f, header, err := req.FormFile("file")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "plant.csv", header.Filename)

	data, _ := io.ReadAll(f)
	assert.Equal(t, SampleCSV, string(data))
}

func TestDecodeJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	_, _ = rec.WriteString(`{"total_records": 3}`)

	var out struct {
		Total int `json:"total_records"`
	}
	DecodeJSON(t, rec, &out)
	assert.Equal(t, 3, out.Total)
}

func TestNewTestRequest(t *testing.T) {
	req := NewTestRequest(http.MethodDelete, "/api/datasets/abc")
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/datasets/abc", req.URL.Path)
	AssertStatusCode(t, http.StatusNoContent, http.StatusNoContent)
}
