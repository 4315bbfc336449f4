package udns

import (
	"context"
	"fmt"
	"strings"
)

// RRSet is one resource record set as the API lists it. RRType comes back
// as "A (1)"; Type strips the numeric suffix.
type RRSet struct {
	OwnerName string         `json:"ownerName"`
	RRType    string         `json:"rrtype"`
	TTL       int            `json:"ttl"`
	RData     []string       `json:"rdata"`
	Profile   map[string]any `json:"profile,omitempty"`
}

// Type returns the record type mnemonic, e.g. "A" for "A (1)".
func (s RRSet) Type() string {
	t, _, _ := strings.Cut(s.RRType, " ")
	return t
}

// ResultInfo carries the paging counters of a list response.
type ResultInfo struct {
	TotalCount    int `json:"totalCount"`
	Offset        int `json:"offset"`
	ReturnedCount int `json:"returnedCount"`
}

// RRSetList is the body of the rrset list endpoints.
type RRSetList struct {
	ZoneName   string     `json:"zoneName"`
	RRSets     []RRSet    `json:"rrSets"`
	ResultInfo ResultInfo `json:"resultInfo"`
}

// ParseRRSets decodes a list response. A response that is not a list body,
// such as an API error object, fails with the API's error code and message.
func ParseRRSets(resp *Response) (*RRSetList, error) {
	obj, ok := resp.Object()
	if !ok {
		return nil, fmt.Errorf("udns: rrset list: unexpected %s response", resp.Kind)
	}

	if _, ok := obj["rrSets"]; !ok {
		if code, msg := apiErrorFields(obj); code != "" || msg != "" {
			return nil, fmt.Errorf("udns: rrset list: %s %s", code, msg)
		}
	}

	var list RRSetList
	if err := resp.Decode(&list); err != nil {
		return nil, fmt.Errorf("udns: rrset list: %w", err)
	}

	return &list, nil
}

type rrsetBody struct {
	TTL     *int     `json:"ttl,omitempty"`
	RData   []string `json:"rdata"`
	Profile any      `json:"profile,omitempty"`
}

func rrsetPath(zoneName string, parts ...string) string {
	return joinPath(zonePath(zoneName)+"/rrsets", parts...)
}

// RRSets lists every rrset in a zone. Search keys are ttl, owner, and value.
func (c *Client) RRSets(ctx context.Context, zoneName string, opts *ListOptions) (*Response, error) {
	return c.Get(ctx, rrsetPath(zoneName), opts.Values())
}

// RRSetsByType lists a zone's rrsets of one type. rtype may be a mnemonic
// (A) or a number (1).
func (c *Client) RRSetsByType(ctx context.Context, zoneName, rtype string, opts *ListOptions) (*Response, error) {
	return c.Get(ctx, rrsetPath(zoneName, rtype), opts.Values())
}

// RRSetsByTypeOwner lists the rrsets of one type at one owner. An owner
// without a trailing dot is relative to the zone.
func (c *Client) RRSetsByTypeOwner(ctx context.Context, zoneName, rtype, owner string, opts *ListOptions) (*Response, error) {
	return c.Get(ctx, rrsetPath(zoneName, rtype, owner), opts.Values())
}

// CreateRRSet creates an rrset.
func (c *Client) CreateRRSet(ctx context.Context, zoneName, rtype, owner string, ttl int, rdata ...string) (*Response, error) {
	return c.Post(ctx, rrsetPath(zoneName, rtype, owner), rrsetBody{TTL: &ttl, RData: rdata})
}

// EditRRSet replaces an rrset. profile is only set for pools and may be nil.
func (c *Client) EditRRSet(ctx context.Context, zoneName, rtype, owner string, ttl int, rdata []string, profile any) (*Response, error) {
	return c.Put(ctx, rrsetPath(zoneName, rtype, owner), rrsetBody{TTL: &ttl, RData: rdata, Profile: profile})
}

// EditRRSetRData replaces only the rdata of an rrset with a PATCH. Pools
// need their profile resent, which the API only takes on a PUT.
func (c *Client) EditRRSetRData(ctx context.Context, zoneName, rtype, owner string, rdata []string, profile any) (*Response, error) {
	body := rrsetBody{RData: rdata, Profile: profile}
	uri := rrsetPath(zoneName, rtype, owner)

	if profile != nil {
		return c.Put(ctx, uri, body)
	}

	return c.Patch(ctx, uri, body)
}

// DeleteRRSet deletes all records of one type at one owner.
func (c *Client) DeleteRRSet(ctx context.Context, zoneName, rtype, owner string) (*Response, error) {
	return c.Delete(ctx, rrsetPath(zoneName, rtype, owner))
}
