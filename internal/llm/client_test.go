package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionResponse(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func TestComplete_SendsChatRequest(t *testing.T) {
	var captured apiRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse("Hello there")))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "sk-test", "gpt-4")
	got, err := client.Complete(context.Background(), Request{
		System:      "You are helpful.",
		Messages:    []Message{{Role: "user", Content: "Hi"}},
		Temperature: 0.7,
		MaxTokens:   100,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", got)
	assert.Equal(t, "Bearer sk-test", authHeader)
	assert.Equal(t, "gpt-4", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, 0.7, captured.Temperature)
	assert.Equal(t, 100, captured.MaxTokens)
	assert.Nil(t, captured.ResponseFormat)
}

func TestComplete_ForceJSONSetsResponseFormat(t *testing.T) {
	var captured apiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionResponse(`{"ok":true}`)))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "sk-test", "gpt-4")
	_, err := client.Complete(context.Background(), Request{
		Messages:  []Message{{Role: "user", Content: "Hi"}},
		ForceJSON: true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"type": "json_object"}, captured.ResponseFormat)
}

func TestComplete_ImageBecomesDataURLPart(t *testing.T) {
	var raw map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(completionResponse(`{"calories":300}`)))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "sk-test", "gpt-4")
	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "Analyze this meal"}},
		Image:    &Image{Data: []byte{0xFF, 0xD8}, ContentType: "image/jpeg"},
	})
	require.NoError(t, err)

	messages := raw["messages"].([]interface{})
	last := messages[len(messages)-1].(map[string]interface{})
	parts := last["content"].([]interface{})
	require.Len(t, parts, 2)

	text := parts[0].(map[string]interface{})
	assert.Equal(t, "text", text["type"])
	imagePart := parts[1].(map[string]interface{})
	assert.Equal(t, "image_url", imagePart["type"])
	url := imagePart["image_url"].(map[string]interface{})["url"].(string)
	assert.Contains(t, url, "data:image/jpeg;base64,")
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completionResponse("recovered")))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "sk-test", "gpt-4")
	got, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "bad-key", "gpt-4")
	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "Hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses other than 429 must not be retried")
}

func TestComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "sk-test", "gpt-4")
	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "Hi"}},
	})
	require.Error(t, err)
}

func TestStub_RecordsRequests(t *testing.T) {
	stub := NewStub()

	text, err := stub.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "a"}}})
	require.NoError(t, err)
	assert.Equal(t, stub.Text, text)

	jsonOut, err := stub.Complete(context.Background(), Request{ForceJSON: true})
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(jsonOut)))

	assert.Len(t, stub.Requests, 2)
}

func TestStub_ConcurrentCompletes(t *testing.T) {
	stub := NewStub()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stub.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, stub.Requests, 50)
}
