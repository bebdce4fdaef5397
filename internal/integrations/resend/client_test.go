package resend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	val string
	err error
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	return f.val, f.err
}

func TestEmailsURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.resend.com", "https://api.resend.com/emails"},
		{"https://api.resend.com/", "https://api.resend.com/emails"},
		{"http://localhost:9090", "http://localhost:9090/emails"},
		{"", "https://api.resend.com/emails"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, emailsURL(tc.base), "base=%q", tc.base)
	}
}

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient(nil, "/gallery-agent", "from@x.com", "to@x.com")
	require.Error(t, err)
	_, err = NewClient(&fakeGetter{}, " ", "from@x.com", "to@x.com")
	require.Error(t, err)
	_, err = NewClient(&fakeGetter{}, "/gallery-agent", " ", "to@x.com")
	require.Error(t, err)
	_, err = NewClient(&fakeGetter{}, "/gallery-agent", "from@x.com", "")
	require.Error(t, err)
}

func TestSend_HappyPath(t *testing.T) {
	var gotAuth string
	var gotReq emailRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotReq))
		_, _ = w.Write([]byte(`{"id":"email-123"}`))
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{val: `{"token":"re-test"}`},
		"/gallery-agent", "Gallery Concierge <agent@gallery.example>", "sales@gallery.example",
		WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	id, err := c.Send(context.Background(), "Gallery Lead · budget mentioned", "<div>hi</div>", "hi")
	require.NoError(t, err)
	require.Equal(t, "email-123", id)

	require.Equal(t, "Bearer re-test", gotAuth)
	require.Equal(t, "Gallery Concierge <agent@gallery.example>", gotReq.From)
	require.Equal(t, "sales@gallery.example", gotReq.To)
	require.Equal(t, "Gallery Lead · budget mentioned", gotReq.Subject)
	require.Equal(t, "<div>hi</div>", gotReq.HTML)
	require.Equal(t, "hi", gotReq.Text)
}

func TestSend_TransportStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid recipient"}`))
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{val: `{"token":"re"}`},
		"/gallery-agent", "a@x.com", "b@x.com", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "s", "h", "t")
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnprocessableEntity, statusErr.HTTPStatusCode())
}

func TestSend_KeyResolutionFailure(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		hits++
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{err: errors.New("denied")},
		"/gallery-agent", "a@x.com", "b@x.com", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "s", "h", "t")
	require.Error(t, err)
	require.Zero(t, hits)
}

func TestSend_EmptyTokenRejected(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":""}`}, "/gallery-agent", "a@x.com", "b@x.com")
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "s", "h", "t")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}
