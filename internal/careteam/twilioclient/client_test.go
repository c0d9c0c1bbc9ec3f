package twilioclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsFormAndReturnsSID(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)

		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotBody = r.PostFormValue("Body")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM999","status":"queued"}`))
	}))
	defer srv.Close()

	c := New("AC123", "token", "+18445230853", nil)
	c.SetBaseURL(srv.URL)

	sid, err := c.Send(context.Background(), Message{To: "+18777804236", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "SM999", sid)
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "+18777804236", gotTo)
	assert.Equal(t, "+18445230853", gotFrom, "default from applied")
	assert.Equal(t, "hello", gotBody)
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' phone number"}`))
	}))
	defer srv.Close()

	c := New("AC123", "token", "+18445230853", nil)
	c.SetBaseURL(srv.URL)

	_, err := c.Send(context.Background(), Message{To: "bogus", Body: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
	assert.Equal(t, 1, calls)
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	c := New("AC123", "token", "+18445230853", nil)
	c.SetBaseURL(srv.URL)

	sid, err := c.Send(context.Background(), Message{To: "+15550001111", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "SM1", sid)
	assert.Equal(t, 3, calls)
}

func TestSendValidatesInput(t *testing.T) {
	c := New("AC123", "token", "", nil)

	_, err := c.Send(context.Background(), Message{Body: "hi"})
	assert.Error(t, err, "missing to")

	_, err = c.Send(context.Background(), Message{To: "+15550001111", Body: "hi"})
	assert.Error(t, err, "missing from with no default")

	_, err = c.Send(context.Background(), Message{To: "+15550001111", From: "+15550002222", Body: "   "})
	assert.Error(t, err, "blank body")

	_, err = New("", "", "", nil).Send(context.Background(), Message{To: "x", From: "y", Body: "z"})
	assert.Error(t, err, "missing credentials")
}
