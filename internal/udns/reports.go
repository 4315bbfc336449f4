package udns

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Report types accepted by the zone query volume endpoint.
const (
	ReportAdvancedNXDomains    = "ADVANCED_NXDOMAINS"
	ReportProjectedQueryVolume = "PROJECTED_QUERY_VOLUME"
)

const (
	reportResultsPath     = "/v1/requests"
	zoneQueryVolumePath   = "/v1/reports/dns_resolution/query_volume/zone"
	projectedQueryVolPath = "/v1/reports/dns_resolution/projected_query_volume"
)

// ReportFilter is the body of a report request. Dates are ISO-8601 strings
// as the API expects them.
type ReportFilter struct {
	HostQueryVolume *ReportWindow  `json:"hostQueryVolume,omitempty"`
	ZoneQueryVolume *ReportWindow  `json:"zoneQueryVolume,omitempty"`
	SortFields      map[string]any `json:"sortFields,omitempty"`
}

// ReportWindow selects the accounts/zones and the time range of a report.
type ReportWindow struct {
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	ZoneQueryID string   `json:"zoneQueryId,omitempty"`
	AccountName string   `json:"accountName,omitempty"`
	ZoneNames   []string `json:"zoneNames,omitempty"`
}

// CreateReport submits a report request. The API answers with a requestId
// that ReportResolver polls.
func (c *Client) CreateReport(ctx context.Context, uri string, query url.Values, filter any) (*Response, error) {
	req, err := jsonRequest(http.MethodPost, uri, filter)
	if err != nil {
		return nil, err
	}

	req.Query = query

	return c.Call(ctx, req)
}

// CreateAdvancedNXDomainReport requests the advanced NXDOMAIN report.
// limit <= 0 leaves the server default.
func (c *Client) CreateAdvancedNXDomainReport(ctx context.Context, filter ReportFilter, limit int) (*Response, error) {
	q := url.Values{
		"advance":    {"true"},
		"reportType": {ReportAdvancedNXDomains},
	}
	setLimit(q, limit)

	return c.CreateReport(ctx, zoneQueryVolumePath, q, filter)
}

// CreateProjectedQueryVolumeReport requests the projected query volume
// report for an account.
func (c *Client) CreateProjectedQueryVolumeReport(ctx context.Context, filter ReportFilter, limit int) (*Response, error) {
	q := url.Values{}
	setLimit(q, limit)

	return c.CreateReport(ctx, projectedQueryVolPath, q, filter)
}

// ReportResults fetches the results of a report request. While the report
// is being generated the API answers with error code 410004 or 410005.
func (c *Client) ReportResults(ctx context.Context, requestID string) (*Response, error) {
	return c.Get(ctx, joinPath(reportResultsPath, requestID), nil)
}

func setLimit(q url.Values, limit int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}
