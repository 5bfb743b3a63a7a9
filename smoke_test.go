package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wstore "docqa/internal/adapter/weaviate"
	"docqa/internal/app"
	"docqa/internal/config"
	"docqa/internal/index"
	"docqa/internal/testutils"
)

func testConfig() *config.Config {
	return &config.Config{
		RetrievalTopK:   5,
		WeaviateScheme:  "http",
		AuditTopic:      "pipeline.audit",
		ServerPort:      8081,
		MaxUploadSizeMB: 50,
	}
}

func uploadRequest(t *testing.T, url, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest("POST", url+"/documents", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func postJSON(t *testing.T, url string, payload interface{}) map[string]interface{} {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSmoke_UploadAndAsk(t *testing.T) {
	deps := &app.Dependencies{Index: index.NewMemory(index.NewHashEmbedder())}
	a, err := app.New(testConfig(), deps)
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler)
	defer srv.Close()

	// Health first.
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Upload a two-paragraph note.
	req := uploadRequest(t, srv.URL, "notes.txt",
		"The project deadline is March 15th.\n\nThe budget is fifty thousand dollars.")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var uploaded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	assert.NotEmpty(t, uploaded["trace_id"])

	// Ask about it. With no generator configured the answer is the
	// extractive fallback over the retrieved paragraphs.
	asked := postJSON(t, srv.URL+"/chat", map[string]string{"query": "what is the project deadline?"})
	traceID, _ := asked["trace_id"].(string)
	require.NotEmpty(t, traceID)

	resp, err = http.Get(fmt.Sprintf("%s/chat/%s", srv.URL, traceID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, "done", answer["status"])
	assert.Contains(t, answer["answer"], "deadline is March 15th")

	sources := answer["source_info"].([]interface{})
	require.NotEmpty(t, sources)
	first := sources[0].(map[string]interface{})
	assert.Equal(t, "notes.txt", first["document"])
	assert.Contains(t, first, "paragraph")
}

func TestSmoke_BrokenUploadIsContained(t *testing.T) {
	deps := &app.Dependencies{Index: index.NewMemory(index.NewHashEmbedder())}
	a, err := app.New(testConfig(), deps)
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler)
	defer srv.Close()

	req := uploadRequest(t, srv.URL, "broken.pdf", "not a pdf")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var uploaded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	assert.Equal(t, "failed", uploaded["status"])

	traceID := uploaded["trace_id"].(string)
	resp, err = http.Get(fmt.Sprintf("%s/chat/%s", srv.URL, traceID))
	require.NoError(t, err)
	defer resp.Body.Close()

	var polled map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&polled))
	assert.Equal(t, "failed", polled["status"])
	assert.Contains(t, polled["error"], "parse failure")

	// The server keeps answering after the failure.
	asked := postJSON(t, srv.URL+"/chat", map[string]string{"query": "anything indexed?"})
	assert.NotEmpty(t, asked["trace_id"])
}

func TestSmoke_NoDocumentsFallback(t *testing.T) {
	deps := &app.Dependencies{Index: index.NewMemory(index.NewHashEmbedder())}
	a, err := app.New(testConfig(), deps)
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler)
	defer srv.Close()

	asked := postJSON(t, srv.URL+"/chat", map[string]string{"query": "what do the documents say?"})
	traceID := asked["trace_id"].(string)

	resp, err := http.Get(fmt.Sprintf("%s/chat/%s", srv.URL, traceID))
	require.NoError(t, err)
	defer resp.Body.Close()

	var answer map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, "done", answer["status"])
	assert.Equal(t,
		"I couldn't find relevant information in the uploaded documents to answer your question.",
		answer["answer"])
	assert.Empty(t, answer["source_info"])
}

func TestIntegration_WeaviateBackedPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	store := wstore.NewStore(suite.Weaviate, index.NewHashEmbedder())
	require.NoError(t, store.EnsureSchema(context.Background()))

	deps := &app.Dependencies{Index: store, AuditTap: suite.NSQ}
	a, err := app.New(testConfig(), deps)
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler)
	defer srv.Close()

	req := uploadRequest(t, srv.URL, "notes.txt", "The warehouse is in Rotterdam.")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	asked := postJSON(t, srv.URL+"/chat", map[string]string{"query": "where is the warehouse?"})
	traceID := asked["trace_id"].(string)

	resp, err = http.Get(fmt.Sprintf("%s/chat/%s", srv.URL, traceID))
	require.NoError(t, err)
	defer resp.Body.Close()

	var answer map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, "done", answer["status"])
	assert.Contains(t, answer["answer"], "Rotterdam")
}
