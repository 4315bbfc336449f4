package udns

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorded is one request captured by recordingServer.
type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// recordingServer captures every request and answers with reply. The
// returned func snapshots the captured requests.
func recordingServer(t *testing.T, status int, reply string) (*httptest.Server, func() []recorded) {
	t.Helper()

	var (
		mu   sync.Mutex
		reqs []recorded
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()

		reqs = append(reqs, recorded{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Body:   string(raw),
		})

		writeJSON(w, status, reply)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()

		return append([]recorded(nil), reqs...)
	}
}

func TestZoneRequests(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func(c *Client) (*Response, error)
		method string
		path   string
		body   string
	}{
		{
			name:   "create primary",
			call:   func(c *Client) (*Response, error) { return c.CreatePrimaryZone(ctx, "acct", "example.com.") },
			method: http.MethodPost,
			path:   "/v1/zones",
			body:   `{"properties":{"name":"example.com.","accountName":"acct","type":"PRIMARY"},"primaryCreateInfo":{"forceImport":true,"createType":"NEW"}}`,
		},
		{
			name: "create by axfr with tsig",
			call: func(c *Client) (*Response, error) {
				return c.CreatePrimaryZoneByAXFR(ctx, "acct", "example.com.", "10.0.0.1", &TSIG{Key: "k", Value: "v"})
			},
			method: http.MethodPost,
			path:   "/v1/zones",
			body:   `{"properties":{"name":"example.com.","accountName":"acct","type":"PRIMARY"},"primaryCreateInfo":{"forceImport":true,"createType":"TRANSFER","nameServer":{"ip":"10.0.0.1","tsigKey":"k","tsigKeyValue":"v"}}}`,
		},
		{
			name: "create secondary without tsig",
			call: func(c *Client) (*Response, error) {
				return c.CreateSecondaryZone(ctx, "acct", "example.com.", "10.0.0.1", &TSIG{Key: "k"})
			},
			method: http.MethodPost,
			path:   "/v1/zones",
			body:   `{"properties":{"name":"example.com.","accountName":"acct","type":"SECONDARY"},"secondaryCreateInfo":{"primaryNameServers":{"nameServerIpList":{"nameServerIp1":{"ip":"10.0.0.1"}}}}}`,
		},
		{
			name: "edit secondary name servers",
			call: func(c *Client) (*Response, error) {
				return c.EditSecondaryNameServer(ctx, "example.com.", "10.0.0.1", "", "10.0.0.3")
			},
			method: http.MethodPatch,
			path:   "/v1/zones/example.com.",
			body:   `{"secondaryCreateInfo":{"primaryNameServers":{"nameServerIpList":{"nameServerIp1":{"ip":"10.0.0.1"},"nameServerIp3":{"ip":"10.0.0.3"}}}}}`,
		},
		{
			name:   "force axfr",
			call:   func(c *Client) (*Response, error) { return c.ForceAXFR(ctx, "example.com.") },
			method: http.MethodPost,
			path:   "/v1/zones/example.com./transfer",
		},
		{
			name:   "convert",
			call:   func(c *Client) (*Response, error) { return c.ConvertZone(ctx, "example.com.") },
			method: http.MethodPost,
			path:   "/v1/zones/example.com./convert",
		},
		{
			name:   "v3 metadata",
			call:   func(c *Client) (*Response, error) { return c.ZoneMetadataV3(ctx, "example.com.") },
			method: http.MethodGet,
			path:   "/v3/zones/example.com.",
		},
		{
			name:   "health check",
			call:   func(c *Client) (*Response, error) { return c.CreateHealthCheck(ctx, "example.com.") },
			method: http.MethodPost,
			path:   "/v1/zones/example.com./healthchecks",
		},
		{
			name:   "restore snapshot",
			call:   func(c *Client) (*Response, error) { return c.RestoreSnapshot(ctx, "example.com.") },
			method: http.MethodPost,
			path:   "/v1/zones/example.com./restore",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := recordingServer(t, http.StatusOK, `{}`)

			_, err := tt.call(newTestClient(t, srv.URL))
			require.NoError(t, err)
			require.Len(t, reqs(), 1)

			got := reqs()[0]
			assert.Equal(t, tt.method, got.Method)
			assert.Equal(t, tt.path, got.Path)

			if tt.body != "" {
				assert.JSONEq(t, tt.body, got.Body)
			} else {
				assert.Empty(t, got.Body)
			}
		})
	}
}

func TestZonesOfAccount_Query(t *testing.T) {
	srv, reqs := recordingServer(t, http.StatusOK, `{"zones":[]}`)

	_, err := newTestClient(t, srv.URL).ZonesOfAccount(context.Background(), "my acct", &ListOptions{
		Q:     map[string]string{"name": "ex"},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, reqs(), 1)
	assert.Equal(t, "/v1/accounts/my%20acct/zones", reqs()[0].Path)
	assert.Equal(t, "limit=10&q=name%3Aex", reqs()[0].Query)
}

func TestRRSetRequests(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func(c *Client) (*Response, error)
		method string
		path   string
		body   string
	}{
		{
			name: "create",
			call: func(c *Client) (*Response, error) {
				return c.CreateRRSet(ctx, "example.com.", "A", "www", 300, "1.2.3.4", "5.6.7.8")
			},
			method: http.MethodPost,
			path:   "/v1/zones/example.com./rrsets/A/www",
			body:   `{"ttl":300,"rdata":["1.2.3.4","5.6.7.8"]}`,
		},
		{
			name: "edit",
			call: func(c *Client) (*Response, error) {
				return c.EditRRSet(ctx, "example.com.", "CNAME", "alias", 60, []string{"www.example.com."}, nil)
			},
			method: http.MethodPut,
			path:   "/v1/zones/example.com./rrsets/CNAME/alias",
			body:   `{"ttl":60,"rdata":["www.example.com."]}`,
		},
		{
			name: "edit rdata patches",
			call: func(c *Client) (*Response, error) {
				return c.EditRRSetRData(ctx, "example.com.", "A", "www", []string{"9.9.9.9"}, nil)
			},
			method: http.MethodPatch,
			path:   "/v1/zones/example.com./rrsets/A/www",
			body:   `{"rdata":["9.9.9.9"]}`,
		},
		{
			name: "edit rdata with profile puts",
			call: func(c *Client) (*Response, error) {
				return c.EditRRSetRData(ctx, "example.com.", "A", "pool", []string{"9.9.9.9"},
					map[string]any{"@context": SBPoolSchema})
			},
			method: http.MethodPut,
			path:   "/v1/zones/example.com./rrsets/A/pool",
			body:   `{"rdata":["9.9.9.9"],"profile":{"@context":"http://schemas.ultradns.com/SBPool.jsonschema"}}`,
		},
		{
			name:   "delete",
			call:   func(c *Client) (*Response, error) { return c.DeleteRRSet(ctx, "example.com.", "TXT", "_acme-challenge") },
			method: http.MethodDelete,
			path:   "/v1/zones/example.com./rrsets/TXT/_acme-challenge",
		},
		{
			name:   "list by type",
			call:   func(c *Client) (*Response, error) { return c.RRSetsByType(ctx, "example.com.", "MX", nil) },
			method: http.MethodGet,
			path:   "/v1/zones/example.com./rrsets/MX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := recordingServer(t, http.StatusOK, `{}`)

			_, err := tt.call(newTestClient(t, srv.URL))
			require.NoError(t, err)
			require.Len(t, reqs(), 1)

			got := reqs()[0]
			assert.Equal(t, tt.method, got.Method)
			assert.Equal(t, tt.path, got.Path)

			if tt.body != "" {
				assert.JSONEq(t, tt.body, got.Body)
			}
		})
	}
}

func TestParseRRSets(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusOK, `{
		"zoneName":"example.com.",
		"rrSets":[
			{"ownerName":"www.example.com.","rrtype":"A (1)","ttl":300,"rdata":["1.2.3.4"]},
			{"ownerName":"example.com.","rrtype":"TXT (16)","ttl":3600,"rdata":["v=spf1 -all"]}
		],
		"resultInfo":{"totalCount":2,"offset":0,"returnedCount":2}
	}`)

	resp, err := newTestClient(t, srv.URL).RRSets(context.Background(), "example.com.", nil)
	require.NoError(t, err)

	list, err := ParseRRSets(resp)
	require.NoError(t, err)
	require.Len(t, list.RRSets, 2)
	assert.Equal(t, "A", list.RRSets[0].Type())
	assert.Equal(t, 300, list.RRSets[0].TTL)
	assert.Equal(t, "TXT", list.RRSets[1].Type())
	assert.Equal(t, 2, list.ResultInfo.TotalCount)
}

func TestParseRRSets_ErrorBody(t *testing.T) {
	resp := NewObjectResponse(map[string]any{"errorCode": "70002", "errorMessage": "Data not found."})

	_, err := ParseRRSets(resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "70002")
}

func TestPools(t *testing.T) {
	pool := Pool{
		TTL:  120,
		Info: map[string]any{"description": "web", "order": "ROUND_ROBIN", "maxActive": 1},
		Members: []PoolMember{
			{RData: "1.1.1.1", Info: RDataInfo{State: "ACTIVE", RunProbes: true, Priority: 1, Threshold: 1}},
			{RData: "2.2.2.2", Info: RDataInfo{State: "INACTIVE", Priority: 2, FailoverDelay: 3, Threshold: 1}},
		},
	}

	t.Run("sb create", func(t *testing.T) {
		srv, reqs := recordingServer(t, http.StatusCreated, `{}`)

		_, err := newTestClient(t, srv.URL).CreateSBPool(context.Background(), "example.com.", "pool", pool,
			[]BackupRecord{{RData: "9.9.9.9", FailoverDelay: 1}})
		require.NoError(t, err)

		got := reqs()[0]
		assert.Equal(t, http.MethodPost, got.Method)
		assert.Equal(t, "/v1/zones/example.com./rrsets/A/pool", got.Path)
		assert.JSONEq(t, `{
			"ttl":120,
			"rdata":["1.1.1.1","2.2.2.2"],
			"profile":{
				"@context":"http://schemas.ultradns.com/SBPool.jsonschema",
				"description":"web","order":"ROUND_ROBIN","maxActive":1,
				"rdataInfo":[
					{"state":"ACTIVE","runProbes":true,"priority":1,"failoverDelay":0,"threshold":1},
					{"state":"INACTIVE","runProbes":false,"priority":2,"failoverDelay":3,"threshold":1}
				],
				"backupRecords":[{"rdata":"9.9.9.9","failoverDelay":1}]
			}
		}`, got.Body)
	})

	t.Run("tc edit", func(t *testing.T) {
		srv, reqs := recordingServer(t, http.StatusOK, `{}`)

		_, err := newTestClient(t, srv.URL).EditTCPool(context.Background(), "example.com.", "pool", pool,
			&BackupRecord{RData: "9.9.9.9"})
		require.NoError(t, err)

		got := reqs()[0]
		assert.Equal(t, http.MethodPut, got.Method)
		assert.Contains(t, got.Body, TCPoolSchema)
		assert.Contains(t, got.Body, `"backupRecord":{"rdata":"9.9.9.9"}`)
	})

	t.Run("sb without backups sends empty list", func(t *testing.T) {
		srv, reqs := recordingServer(t, http.StatusOK, `{}`)

		_, err := newTestClient(t, srv.URL).EditSBPool(context.Background(), "example.com.", "pool", pool, nil)
		require.NoError(t, err)
		assert.Contains(t, reqs()[0].Body, `"backupRecords":[]`)
	})
}

func TestWebForwards(t *testing.T) {
	srv, reqs := recordingServer(t, http.StatusCreated, `{"guid":"wf-1"}`)
	client := newTestClient(t, srv.URL)

	_, err := client.CreateWebForward(context.Background(), "example.com.", "go.example.com", "https://example.org", ForwardHTTP301)
	require.NoError(t, err)

	_, err = client.DeleteWebForward(context.Background(), "example.com.", "wf-1")
	require.NoError(t, err)

	require.Len(t, reqs(), 2)
	assert.JSONEq(t, `{"requestTo":"go.example.com","defaultRedirectTo":"https://example.org","defaultForwardType":"HTTP_301_REDIRECT"}`, reqs()[0].Body)
	assert.Equal(t, "/v1/zones/example.com./webforwards/wf-1", reqs()[1].Path)
	assert.Equal(t, http.MethodDelete, reqs()[1].Method)
}

func TestBatch(t *testing.T) {
	srv, reqs := recordingServer(t, http.StatusMultiStatus, `[{"status":201},{"status":400,"response":{"errorCode":2111}}]`)

	resp, err := newTestClient(t, srv.URL).Batch(context.Background(), []BatchRequest{
		{Method: "post", URI: "/v1/zones/example.com./rrsets/A/a", Body: map[string]any{"ttl": 300, "rdata": []string{"1.1.1.1"}}},
		{Method: "DELETE", URI: "/v1/zones/example.com./rrsets/A/b"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	assert.Len(t, resp.Value, 2)

	assert.JSONEq(t, `[
		{"method":"POST","uri":"/v1/zones/example.com./rrsets/A/a","body":{"ttl":300,"rdata":["1.1.1.1"]}},
		{"method":"DELETE","uri":"/v1/zones/example.com./rrsets/A/b"}
	]`, reqs()[0].Body)
}

func TestBatch_Validation(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")

	_, err := client.Batch(context.Background(), nil)
	require.Error(t, err)

	_, err = client.Batch(context.Background(), []BatchRequest{{Method: "HEAD", URI: "/v1/status"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported method")

	_, err = client.Batch(context.Background(), []BatchRequest{{Method: "GET"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing uri")
}

func TestTasksEndpoints(t *testing.T) {
	srv, reqs := recordingServer(t, http.StatusOK, `{"tasks":[]}`)
	client := newTestClient(t, srv.URL)

	_, err := client.Tasks(context.Background(), &ListOptions{Limit: 5})
	require.NoError(t, err)

	_, err = client.ClearTask(context.Background(), "t-1")
	require.NoError(t, err)

	require.Len(t, reqs(), 2)
	assert.Equal(t, "/v1/tasks", reqs()[0].Path)
	assert.Equal(t, "limit=5", reqs()[0].Query)
	assert.Equal(t, http.MethodDelete, reqs()[1].Method)
	assert.Equal(t, "/v1/tasks/t-1", reqs()[1].Path)
}

func TestTaskList_Decode(t *testing.T) {
	v, err := decodeJSON([]byte(`{"tasks":[{"taskId":"t-1","code":"COMPLETE","message":"done","hasData":true,"resultUri":"/v1/tasks/t-1/result"}],"resultInfo":{"totalCount":1}}`))
	require.NoError(t, err)

	var list TaskList
	require.NoError(t, (&Response{Kind: KindStructured, Value: v}).Decode(&list))
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, Task{TaskID: "t-1", Code: TaskComplete, Message: "done", HasData: true, ResultURI: "/v1/tasks/t-1/result"}, list.Tasks[0])
	assert.Equal(t, 1, list.ResultInfo.TotalCount)
}
