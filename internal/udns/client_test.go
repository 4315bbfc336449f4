package udns

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// noopSleep is a sleep function that returns immediately, for fast tests.
func noopSleep(_ context.Context, _ time.Duration) error {
	return nil
}

// newTestClient creates a Client pointing at the given httptest server with
// an initial token pair and instant sleeps.
func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()

	session := NewSession(url, true)
	session.SetToken("access-1", "refresh-1", time.Hour)

	c := NewClient(session, http.DefaultClient, slog.Default(), opts...)
	c.sleepFunc = noopSleep

	return c
}

// writeJSON writes status and a JSON body.
func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestCall_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/status", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"message":"Good"}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindStructured, resp.Kind)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Good", resp.String("message"))
}

func TestCall_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).DeleteZone(context.Background(), "example.com.")
	require.NoError(t, err)
	assert.Equal(t, KindEmpty, resp.Kind)
	assert.Equal(t, map[string]any{}, resp.Unwrap())
}

func TestCall_RawBodies(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		kind        Kind
	}{
		{"text with charset", "text/plain; charset=utf-8", "$ORIGIN example.com.\n", KindText},
		{"zip", "application/zip", "PK\x03\x04", KindBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := newTestClient(t, srv.URL).Get(context.Background(), "/v1/tasks/t1/result", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, resp.Kind)

			if tt.kind == KindText {
				assert.Equal(t, tt.body, resp.Text)
			} else {
				assert.Equal(t, []byte(tt.body), resp.Bytes)
			}
		})
	}
}

func TestCall_UndecodableBodyIsEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{not json`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Version(context.Background())
	require.NoError(t, err)

	obj, ok := resp.Object()
	require.True(t, ok)
	assert.Empty(t, obj)
}

func TestCall_AcceptedMergesAsyncHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Task-Id", "task-42")
		w.Header().Set("Location", "https://example.test/v1/zones/example.com./healthchecks/1")
		writeJSON(w, http.StatusAccepted, `{"message":"Pending"}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).CreateSnapshot(context.Background(), "example.com.")
	require.NoError(t, err)
	assert.Equal(t, "task-42", resp.TaskID())
	assert.Equal(t, "https://example.test/v1/zones/example.com./healthchecks/1", resp.Location())
	assert.Equal(t, "Pending", resp.String("message"))
}

func TestCall_AcceptedEmptyBodyGetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Task-Id", "task-7")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).CreateSnapshot(context.Background(), "example.com.")
	require.NoError(t, err)
	assert.Equal(t, "task-7", resp.TaskID())
}

func TestCall_AcceptedArrayBodyLeftAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Task-Id", "task-7")
		writeJSON(w, http.StatusAccepted, `[{"status":202}]`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Post(context.Background(), "/v1/batch", nil)
	require.NoError(t, err)
	assert.Empty(t, resp.TaskID())
	assert.IsType(t, []any{}, resp.Value)
}

// tokenServer serves the token endpoint and counts refreshes; every other
// path is handed to api.
func tokenServer(t *testing.T, refreshes *atomic.Int32, api http.HandlerFunc) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))

			refreshes.Add(1)
			writeJSON(w, http.StatusOK, `{"accessToken":"access-2","refreshToken":"refresh-2","expiresIn":"3600"}`)

			return
		}

		api(w, r)
	}))
}

func TestCall_RefreshesOnInvalidToken(t *testing.T) {
	var calls, refreshes atomic.Int32

	srv := tokenServer(t, &refreshes, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if r.Header.Get("Authorization") == "Bearer access-1" {
			writeJSON(w, http.StatusUnauthorized, `{"errorCode":60001,"errorMessage":"invalid_grant:token not found, expired or invalid"}`)
			return
		}

		assert.Equal(t, "Bearer access-2", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"accounts":[]}`)
	})
	defer srv.Close()

	var observed []oauth2.Token

	client := newTestClient(t, srv.URL, WithTokenObserver(func(tok oauth2.Token) {
		observed = append(observed, tok)
	}))

	resp, err := client.AccountDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), refreshes.Load())

	tok := client.Session().Token()
	assert.Equal(t, "access-2", tok.AccessToken)
	assert.Equal(t, "refresh-2", tok.RefreshToken)
	assert.False(t, tok.Expiry.IsZero())

	require.Len(t, observed, 1)
	assert.Equal(t, "access-2", observed[0].AccessToken)
}

func TestCall_RefreshRetriesOnlyOnce(t *testing.T) {
	var calls, refreshes atomic.Int32

	srv := tokenServer(t, &refreshes, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"errorCode":60001,"errorMessage":"invalid"}`)
	})
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).AccountDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "60001", resp.ErrorCode())
	assert.Equal(t, int32(2), calls.Load(), "no third attempt")
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestCall_RefreshFailureIsAuthError(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"refresh token expired"}`)
			return
		}

		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"errorCode":60001,"errorMessage":"invalid"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Zones(context.Background(), nil)
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Equal(t, "invalid_grant", authErr.Code)
	assert.Equal(t, "refresh token expired", authErr.Message)
	assert.Equal(t, "invalid_grant", authErr.Body["error"])
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCall_NoRetrySkipsRefresh(t *testing.T) {
	var calls, refreshes atomic.Int32

	srv := tokenServer(t, &refreshes, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"errorCode":"60001"}`)
	})
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Call(context.Background(), Request{
		Method:  http.MethodGet,
		URI:     "/v1/accounts",
		NoRetry: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "60001", resp.ErrorCode())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(0), refreshes.Load())
}

func TestCall_ConcurrentRefreshesCollapse(t *testing.T) {
	var refreshes atomic.Int32

	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			<-release
			refreshes.Add(1)
			writeJSON(w, http.StatusOK, `{"accessToken":"access-2","refreshToken":"refresh-2","expiresIn":"3600"}`)

			return
		}

		writeJSON(w, http.StatusOK, `{}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var wg sync.WaitGroup

	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)

		go func() {
			defer wg.Done()
			errs[i] = client.Refresh(context.Background())
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, refreshes.Load(), int32(4))
	assert.GreaterOrEqual(t, refreshes.Load(), int32(1))
	assert.Equal(t, "access-2", client.Session().Token().AccessToken)
}

func TestRefresh_CanceledCallerDoesNotFailOthers(t *testing.T) {
	var refreshes atomic.Int32

	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tokenPath {
			writeJSON(w, http.StatusOK, `{}`)
			return
		}

		refreshes.Add(1)
		entered <- struct{}{}
		<-release
		writeJSON(w, http.StatusOK, `{"accessToken":"access-2","refreshToken":"refresh-2","expiresIn":"3600"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)

	go func() { firstErr <- client.Refresh(firstCtx) }()

	<-entered

	secondErr := make(chan error, 1)

	go func() { secondErr <- client.Refresh(context.Background()) }()

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	// Give the second caller time to join the flight before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, "access-2", client.Session().Token().AccessToken)
}

func TestCall_RateLimitRetriesOnce(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		writeJSON(w, http.StatusOK, `{"version":"1.0"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var slept []time.Duration
	client.sleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	resp, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0", resp.String("version"))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{time.Second}, slept)
}

func TestCall_RateLimitTwiceReturnsSecondResponse(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusTooManyRequests, `{"errorCode":429,"errorMessage":"Too many requests"}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCall_RateLimitWaitCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.sleepFunc = timeSleep

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Version(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCall_HeadersAndCustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "tracing-123", r.Header.Get("X-Request-Id"))
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, `{}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, WithUserAgent("custom-agent"))
	require.NoError(t, client.Session().SetCustomHeaders(map[string]string{"X-Request-Id": "tracing-123"}))

	_, err := client.Post(context.Background(), "/v1/zones", map[string]string{"a": "b"})
	require.NoError(t, err)
}

func TestSetCustomHeaders_RejectsReserved(t *testing.T) {
	for _, name := range []string{"Authorization", "content-type", "ACCEPT"} {
		t.Run(name, func(t *testing.T) {
			s := NewSession("", false)

			err := s.SetCustomHeaders(map[string]string{name: "x", "X-Ok": "y"})
			require.ErrorIs(t, err, ErrForbiddenHeader)
			assert.Empty(t, s.CustomHeaders(), "nothing applied on rejection")
		})
	}
}

func TestCall_StrictErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"errorCode":70002,"errorMessage":"Data not found."}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, WithStrictErrors()).ZoneMetadata(context.Background(), "missing.com.")
	require.Error(t, err)

	var restErr *RestError
	require.ErrorAs(t, err, &restErr)
	assert.Equal(t, http.StatusNotFound, restErr.StatusCode)
	assert.Equal(t, "70002", restErr.Code)
	assert.Equal(t, "Data not found.", restErr.Message)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCall_StrictErrorsArrayBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `[{"errorCode":1801,"errorMessage":"Zone does not exist in the system."}]`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, WithStrictErrors()).ZoneMetadata(context.Background(), "missing.com.")

	var restErr *RestError
	require.ErrorAs(t, err, &restErr)
	assert.Equal(t, "1801", restErr.Code)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestCall_ErrorsReturnedAsDataByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"errorCode":1801,"errorMessage":"Zone does not exist in the system."}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).ZoneMetadata(context.Background(), "missing.com.")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "1801", resp.ErrorCode())
}

func TestCall_AbsoluteURIUsedVerbatim(t *testing.T) {
	var hits atomic.Int32

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/status/abc", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"state":"COMPLETED"}`)
	}))
	defer other.Close()

	client := newTestClient(t, "http://127.0.0.1:1")

	resp, err := client.Get(context.Background(), other.URL+"/status/abc", nil)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", resp.String("state"))
	assert.Equal(t, int32(1), hits.Load())
}

func TestCall_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestClient(t, srv.URL).Version(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /v1/version")
}

func TestPostMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])

		zone, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "zone", zone.FormName())
		assert.Equal(t, "application/json", zone.Header.Get("Content-Type"))

		meta, err := io.ReadAll(zone)
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"properties":{"name":"example.com.","accountName":"acct","type":"PRIMARY"},"primaryCreateInfo":{"forceImport":true,"createType":"UPLOAD"}}`,
			string(meta))

		file, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "file", file.FormName())
		assert.Equal(t, "file", file.FileName())

		contents, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "$ORIGIN example.com.", string(contents))

		w.Header().Set("X-Task-Id", "upload-1")
		writeJSON(w, http.StatusAccepted, `{}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).CreatePrimaryZoneByUpload(
		context.Background(), "acct", "example.com.", []byte("$ORIGIN example.com."))
	require.NoError(t, err)
	assert.Equal(t, "upload-1", resp.TaskID())
}

func TestAuth_PasswordGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tokenPath, r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "jdoe", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret", r.PostForm.Get("password"))

		writeJSON(w, http.StatusOK, `{"tokenType":"Bearer","accessToken":"a","refreshToken":"r","expiresIn":"3600"}`)
	}))
	defer srv.Close()

	session := NewSession(srv.URL, true)
	client := NewClient(session, nil, nil)

	require.NoError(t, client.Auth(context.Background(), "jdoe", "s3cret"))
	assert.True(t, session.HasToken())
	assert.Equal(t, "a", session.Token().AccessToken)
	assert.Equal(t, "r", session.Token().RefreshToken)
}

func TestAuth_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"errorCode":60001,"errorMessage":"invalid_grant:Invalid username & password combination."}`)
	}))
	defer srv.Close()

	client := NewClient(NewSession(srv.URL, true), nil, nil)

	err := client.Auth(context.Background(), "jdoe", "wrong")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "60001", authErr.Code)
	assert.Contains(t, authErr.Error(), "Invalid username")
	assert.False(t, client.Session().HasToken())
}

func TestAuthenticate(t *testing.T) {
	client := NewClient(NewSession("", false), nil, nil)

	t.Run("token pair", func(t *testing.T) {
		require.NoError(t, client.Authenticate(context.Background(), Credentials{
			AccessToken:  "a",
			RefreshToken: "r",
		}))
		assert.Equal(t, "a", client.Session().Token().AccessToken)
	})

	t.Run("no credentials", func(t *testing.T) {
		err := client.Authenticate(context.Background(), Credentials{})
		assert.ErrorIs(t, err, ErrNotLoggedIn)
	})

	t.Run("username without password", func(t *testing.T) {
		err := client.Authenticate(context.Background(), Credentials{Username: "jdoe"})
		assert.ErrorIs(t, err, ErrMissingPassword)
	})
}

func TestSession_BaseURL(t *testing.T) {
	assert.Equal(t, "https://api.ultradns.com", NewSession("", false).BaseURL())
	assert.Equal(t, "http://localhost:8080", NewSession("localhost:8080", true).BaseURL())
	assert.Equal(t, "https://test.ultradns.net", NewSession("https://test.ultradns.net/", true).BaseURL())
}

func TestListOptions_Values(t *testing.T) {
	reverse := true

	v := (&ListOptions{
		Q:       map[string]string{"zone_type": "PRIMARY", "name": "foo"},
		Sort:    "NAME",
		Reverse: &reverse,
		Offset:  100,
		Limit:   50,
	}).Values()

	assert.Equal(t, "name:foo zone_type:PRIMARY", v.Get("q"))
	assert.Equal(t, "NAME", v.Get("sort"))
	assert.Equal(t, "true", v.Get("reverse"))
	assert.Equal(t, "100", v.Get("offset"))
	assert.Equal(t, "50", v.Get("limit"))

	var nilOpts *ListOptions
	assert.Empty(t, nilOpts.Values())
}

func TestJoinPath_NormalizesSegments(t *testing.T) {
	decomposed := "cafe\u0301.com."

	assert.Equal(t, "/v1/zones/caf%C3%A9.com.", joinPath("/v1/zones", decomposed))
	assert.Equal(t, "/v1/zones/a%2Fb", joinPath("/v1/zones", "a/b"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "structured", KindStructured.String())
	assert.True(t, strings.HasPrefix(Kind(9).String(), "kind("))
}

func TestRestError_NoCode(t *testing.T) {
	err := &RestError{StatusCode: 500, Message: "boom", Err: ErrServerError}
	assert.Equal(t, "udns: HTTP 500: boom", err.Error())
	assert.True(t, errors.Is(err, ErrServerError))
}

func TestResponse_Err(t *testing.T) {
	ok := &Response{Kind: KindStructured, StatusCode: http.StatusOK, Value: map[string]any{}}
	assert.NoError(t, ok.Err())

	var nilResp *Response
	assert.NoError(t, nilResp.Err())

	v, err := decodeJSON([]byte(`[{"errorCode":70002,"errorMessage":"Data not found."}]`))
	require.NoError(t, err)

	notFound := &Response{Kind: KindStructured, StatusCode: http.StatusNotFound, Value: v}

	var restErr *RestError
	require.ErrorAs(t, notFound.Err(), &restErr)
	assert.Equal(t, "70002", restErr.Code)
	assert.ErrorIs(t, notFound.Err(), ErrNotFound)
}
