package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskReturnsTrimmedResponse(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"response":" Hello there ","done":true}`))
	}))
	defer srv.Close()

	relay := New(srv.URL, "", 0)
	assert.Equal(t, "Hello there", relay.Ask(context.Background(), "hi"))
	assert.Equal(t, generateRequest{Model: DefaultModel, Prompt: "hi", Stream: false}, got)
}

func TestAskSendsStreamFalse(t *testing.T) {
	var raw map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	New(srv.URL, "tiny", 0).Ask(context.Background(), "q")
	assert.Equal(t, false, raw["stream"])
	assert.Equal(t, "tiny", raw["model"])
}

func TestAskNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Equal(t, "[Error 500] Could not reach local model.", New(srv.URL, "", 0).Ask(context.Background(), "hi"))
}

func TestAskConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	reply := New(url, "", 0).Ask(context.Background(), "hi")
	assert.True(t, strings.HasPrefix(reply, "[Exception] "), reply)
}

func TestAskBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	reply := New(srv.URL, "", 0).Ask(context.Background(), "hi")
	assert.True(t, strings.HasPrefix(reply, "[Exception] failed to decode response"), reply)
}

func TestAskTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	reply := New(srv.URL, "", 20*time.Millisecond).Ask(context.Background(), "hi")
	assert.True(t, strings.HasPrefix(reply, "[Exception] "), reply)
}
