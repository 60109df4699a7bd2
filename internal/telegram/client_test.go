package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInvokeSendsURLEncodedPost(t *testing.T) {
	var gotPath, gotContentType string
	var gotForm map[string]string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"id":1}}`))
	}))
	defer ts.Close()

	client := NewClient("TOKEN", ts.URL, zap.NewNop())
	resp, err := client.Invoke(context.Background(), "sendMessage", map[string]string{
		"chat_id": "42",
		"text":    "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "42", gotForm["chat_id"])
	assert.Equal(t, "hi", gotForm["text"])
	assert.True(t, resp.Ok)
	assert.JSONEq(t, `{"ok":true,"result":{"id":1}}`, string(resp.Body))
}

func TestInvokePassesThroughNotOkResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer ts.Close()

	client := NewClient("BAD", ts.URL, zap.NewNop())
	resp, err := client.Invoke(context.Background(), "getMe", map[string]string{})
	require.NoError(t, err)

	assert.False(t, resp.Ok)
	assert.Equal(t, 401, resp.ErrorCode)
	assert.Equal(t, "Unauthorized", resp.Description)
	assert.JSONEq(t, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, string(resp.Body))
}

func TestInvokeTransportErrorPropagates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // connection refused

	client := NewClient("TOKEN", ts.URL, zap.NewNop())
	_, err := client.Invoke(context.Background(), "getMe", map[string]string{})
	assert.Error(t, err)
}

func TestInvokeUnparseableBodyFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer ts.Close()

	client := NewClient("TOKEN", ts.URL, zap.NewNop())
	_, err := client.Invoke(context.Background(), "getMe", map[string]string{})
	assert.Error(t, err)
}

func TestGetUpdatesParams(t *testing.T) {
	testCases := []struct {
		name       string
		offset     string
		wantOffset string
		hasOffset  bool
	}{
		{name: "with offset", offset: "123", wantOffset: "123", hasOffset: true},
		{name: "without offset", offset: "", hasOffset: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var form map[string][]string
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				form = r.PostForm
				w.Write([]byte(`{"ok":true,"result":[]}`))
			}))
			defer ts.Close()

			client := NewClient("TOKEN", ts.URL, zap.NewNop())
			_, err := client.GetUpdates(context.Background(), tc.offset)
			require.NoError(t, err)

			assert.Equal(t, "100", form["limit"][0])
			assert.Equal(t, "0", form["timeout"][0])
			_, ok := form["offset"]
			assert.Equal(t, tc.hasOffset, ok)
			if tc.hasOffset {
				assert.Equal(t, tc.wantOffset, form["offset"][0])
			}
		})
	}
}

func TestSendMessageParams(t *testing.T) {
	var form map[string][]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer ts.Close()

	client := NewClient("TOKEN", ts.URL, zap.NewNop())
	_, err := client.SendMessage(context.Background(), 42, "<b>hi</b>")
	require.NoError(t, err)

	assert.Equal(t, "42", form["chat_id"][0])
	assert.Equal(t, "<b>hi</b>", form["text"][0])
	assert.Equal(t, "HTML", form["parse_mode"][0])
}
