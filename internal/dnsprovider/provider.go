// Package dnsprovider implements the libdns interfaces over UltraDNS
// resource record sets, so ACME clients and other libdns consumers can
// manage records in an UltraDNS zone.
//
// UltraDNS stores records grouped by (owner, type) with one TTL per group.
// A libdns record maps to one rdata entry of such a group.
package dnsprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/libdns/libdns"

	"github.com/tonimelisma/ultradns-go/internal/udns"
)

// errCodeNoData is the API error code for an empty result ("Data not found").
const errCodeNoData = "70002"

// defaultTTL is used when a created record set carries no TTL.
const defaultTTL = 300

const defaultPageSize = 500

// Provider manages records in UltraDNS zones. Zone names are fully
// qualified ("example.com."); record names are relative to the zone.
type Provider struct {
	client   *udns.Client
	logger   *slog.Logger
	pageSize int

	// mu serializes read-modify-write cycles on record sets.
	mu sync.Mutex
}

// New returns a provider that issues calls through client.
func New(client *udns.Client, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{client: client, logger: logger, pageSize: defaultPageSize}
}

// GetRecords lists all the records in the zone.
func (p *Provider) GetRecords(ctx context.Context, zone string) ([]libdns.Record, error) {
	sets, err := p.listRRSets(ctx, zone)
	if err != nil {
		return nil, err
	}

	var records []libdns.Record
	for _, set := range sets {
		records = append(records, toLibdns(zone, set)...)
	}

	return records, nil
}

// AppendRecords adds records to the zone, creating record sets as needed.
// Values already present are not duplicated. It returns the records added.
func (p *Provider) AppendRecords(ctx context.Context, zone string, records []libdns.Record) ([]libdns.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	groups, err := groupRecords(zone, records)
	if err != nil {
		return nil, err
	}

	var added []libdns.Record

	for _, g := range groups {
		existing, err := p.fetchRRSet(ctx, zone, g.rtype, g.owner)
		if err != nil {
			return added, err
		}

		if existing == nil {
			if err := p.check(p.client.CreateRRSet(ctx, zone, g.rtype, g.owner, g.ttl(), g.data()...)); err != nil {
				return added, fmt.Errorf("dnsprovider: creating %s %s: %w", g.rtype, g.owner, err)
			}

			added = append(added, g.records...)

			continue
		}

		merged := slices.Clone(existing.RData)
		var fresh []libdns.Record

		for i, d := range g.data() {
			if !slices.Contains(merged, d) {
				merged = append(merged, d)
				fresh = append(fresh, g.records[i])
			}
		}

		if len(fresh) == 0 {
			continue
		}

		if err := p.check(p.client.EditRRSetRData(ctx, zone, g.rtype, g.owner, merged, profileOf(existing))); err != nil {
			return added, fmt.Errorf("dnsprovider: appending to %s %s: %w", g.rtype, g.owner, err)
		}

		added = append(added, fresh...)
	}

	p.logger.Debug("appended records", slog.String("zone", zone), slog.Int("count", len(added)))

	return added, nil
}

// SetRecords makes the given records the only ones for each (name, type)
// pair in the input. Pairs not mentioned are left alone.
func (p *Provider) SetRecords(ctx context.Context, zone string, records []libdns.Record) ([]libdns.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	groups, err := groupRecords(zone, records)
	if err != nil {
		return nil, err
	}

	var set []libdns.Record

	for _, g := range groups {
		existing, err := p.fetchRRSet(ctx, zone, g.rtype, g.owner)
		if err != nil {
			return set, err
		}

		if existing == nil {
			err = p.check(p.client.CreateRRSet(ctx, zone, g.rtype, g.owner, g.ttl(), g.data()...))
		} else {
			err = p.check(p.client.EditRRSet(ctx, zone, g.rtype, g.owner, g.ttl(), g.data(), profileOf(existing)))
		}

		if err != nil {
			return set, fmt.Errorf("dnsprovider: setting %s %s: %w", g.rtype, g.owner, err)
		}

		set = append(set, g.records...)
	}

	return set, nil
}

// DeleteRecords removes matching records. An empty type, TTL, or value in
// an input record matches any. Record sets left without values are deleted.
// It returns the records actually removed.
func (p *Provider) DeleteRecords(ctx context.Context, zone string, records []libdns.Record) ([]libdns.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sets, err := p.listRRSets(ctx, zone)
	if err != nil {
		return nil, err
	}

	var deleted []libdns.Record

	for _, set := range sets {
		remaining := make([]string, 0, len(set.RData))
		var gone []libdns.Record

		for _, data := range set.RData {
			if matchesAny(zone, set, data, records) {
				gone = append(gone, toRecord(zone, set, data))
				continue
			}

			remaining = append(remaining, data)
		}

		if len(gone) == 0 {
			continue
		}

		if len(remaining) == 0 {
			err = p.check(p.client.DeleteRRSet(ctx, zone, set.Type(), set.OwnerName))
		} else {
			err = p.check(p.client.EditRRSetRData(ctx, zone, set.Type(), set.OwnerName, remaining, profileOf(&set)))
		}

		if err != nil {
			return deleted, fmt.Errorf("dnsprovider: deleting from %s %s: %w", set.Type(), set.OwnerName, err)
		}

		deleted = append(deleted, gone...)
	}

	p.logger.Debug("deleted records", slog.String("zone", zone), slog.Int("count", len(deleted)))

	return deleted, nil
}

// ListZones lists the zones visible to the account.
func (p *Provider) ListZones(ctx context.Context) ([]libdns.Zone, error) {
	var zones []libdns.Zone

	for offset := 0; ; {
		resp, err := p.client.Zones(ctx, &udns.ListOptions{Offset: offset, Limit: p.pageSize})
		if err != nil {
			return nil, fmt.Errorf("dnsprovider: listing zones: %w", err)
		}

		if err := resp.Err(); err != nil {
			if isNoData(err) {
				return zones, nil
			}

			return nil, fmt.Errorf("dnsprovider: listing zones: %w", err)
		}

		var page zoneList
		if err := resp.Decode(&page); err != nil {
			return nil, fmt.Errorf("dnsprovider: listing zones: %w", err)
		}

		for _, z := range page.Zones {
			zones = append(zones, libdns.Zone{Name: z.Properties.Name})
		}

		offset += len(page.Zones)
		if len(page.Zones) == 0 || offset >= page.ResultInfo.TotalCount {
			return zones, nil
		}
	}
}

type zoneList struct {
	Zones []struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"zones"`
	ResultInfo udns.ResultInfo `json:"resultInfo"`
}

// listRRSets pages through every record set of zone.
func (p *Provider) listRRSets(ctx context.Context, zone string) ([]udns.RRSet, error) {
	var all []udns.RRSet

	for offset := 0; ; {
		resp, err := p.client.RRSets(ctx, zone, &udns.ListOptions{Offset: offset, Limit: p.pageSize})
		if err != nil {
			return nil, fmt.Errorf("dnsprovider: listing %s: %w", zone, err)
		}

		if err := resp.Err(); err != nil {
			if isNoData(err) {
				return all, nil
			}

			return nil, fmt.Errorf("dnsprovider: listing %s: %w", zone, err)
		}

		list, err := udns.ParseRRSets(resp)
		if err != nil {
			return nil, err
		}

		all = append(all, list.RRSets...)

		offset += len(list.RRSets)
		if len(list.RRSets) == 0 || offset >= list.ResultInfo.TotalCount {
			return all, nil
		}
	}
}

// fetchRRSet returns the record set at (owner, rtype), or nil when none exists.
func (p *Provider) fetchRRSet(ctx context.Context, zone, rtype, owner string) (*udns.RRSet, error) {
	resp, err := p.client.RRSetsByTypeOwner(ctx, zone, rtype, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("dnsprovider: looking up %s %s: %w", rtype, owner, err)
	}

	if err := resp.Err(); err != nil {
		if isNoData(err) {
			return nil, nil //nolint:nilnil // absent record set
		}

		return nil, fmt.Errorf("dnsprovider: looking up %s %s: %w", rtype, owner, err)
	}

	list, err := udns.ParseRRSets(resp)
	if err != nil {
		return nil, err
	}

	if len(list.RRSets) == 0 {
		return nil, nil //nolint:nilnil // absent record set
	}

	return &list.RRSets[0], nil
}

// check turns a call result into an error, including API error bodies.
func (p *Provider) check(resp *udns.Response, err error) error {
	if err != nil {
		return err
	}

	return resp.Err()
}

func isNoData(err error) bool {
	var restErr *udns.RestError
	if errors.As(err, &restErr) && restErr.Code == errCodeNoData {
		return true
	}

	return errors.Is(err, udns.ErrNotFound)
}

// profileOf returns the set's pool profile, or an untyped nil for a plain
// record set.
func profileOf(set *udns.RRSet) any {
	if set.Profile == nil {
		return nil
	}

	return set.Profile
}

// rrGroup collects input records sharing an owner and type.
type rrGroup struct {
	owner   string
	rtype   string
	records []libdns.Record
	rrs     []libdns.RR
}

func (g *rrGroup) data() []string {
	out := make([]string, len(g.rrs))
	for i, rr := range g.rrs {
		out[i] = rr.Data
	}

	return out
}

// ttl is the first non-zero TTL in the group, in whole seconds.
func (g *rrGroup) ttl() int {
	for _, rr := range g.rrs {
		if rr.TTL > 0 {
			return int(rr.TTL / time.Second)
		}
	}

	return defaultTTL
}

// groupRecords groups records by absolute owner and type, keeping input order.
func groupRecords(zone string, records []libdns.Record) ([]*rrGroup, error) {
	var groups []*rrGroup
	index := make(map[string]*rrGroup)

	for _, rec := range records {
		rr := rec.RR()
		if rr.Type == "" {
			return nil, fmt.Errorf("dnsprovider: record %q has no type", rr.Name)
		}

		owner := libdns.AbsoluteName(rr.Name, zone)
		key := owner + "\x00" + rr.Type

		g, ok := index[key]
		if !ok {
			g = &rrGroup{owner: owner, rtype: rr.Type}
			index[key] = g
			groups = append(groups, g)
		}

		g.records = append(g.records, rec)
		g.rrs = append(g.rrs, rr)
	}

	return groups, nil
}

// matchesAny reports whether the rdata entry data of set matches one of the
// deletion templates.
func matchesAny(zone string, set udns.RRSet, data string, templates []libdns.Record) bool {
	name := relativeName(set.OwnerName, zone)

	for _, tmpl := range templates {
		rr := tmpl.RR()

		if relativeName(rr.Name, zone) != name {
			continue
		}

		if rr.Type != "" && rr.Type != set.Type() {
			continue
		}

		if rr.TTL != 0 && rr.TTL != time.Duration(set.TTL)*time.Second {
			continue
		}

		if rr.Data != "" && rr.Data != data {
			continue
		}

		return true
	}

	return false
}

// relativeName returns name relative to zone, with "@" for the apex. Names
// that are already relative pass through unchanged.
func relativeName(name, zone string) string {
	if name == "" || name == "@" {
		return "@"
	}

	if !strings.HasSuffix(name, ".") {
		return name
	}

	rel := libdns.RelativeName(name, zone)
	if rel == "" {
		return "@"
	}

	return rel
}

func toLibdns(zone string, set udns.RRSet) []libdns.Record {
	records := make([]libdns.Record, 0, len(set.RData))
	for _, data := range set.RData {
		records = append(records, toRecord(zone, set, data))
	}

	return records
}

// toRecord converts one rdata entry into its typed libdns record, falling
// back to the raw RR for types libdns does not parse.
func toRecord(zone string, set udns.RRSet, data string) libdns.Record {
	rr := libdns.RR{
		Name: relativeName(set.OwnerName, zone),
		TTL:  time.Duration(set.TTL) * time.Second,
		Type: set.Type(),
		Data: data,
	}

	parsed, err := rr.Parse()
	if err != nil || parsed == nil {
		return rr
	}

	return parsed
}

// Interface guards
var (
	_ libdns.RecordGetter   = (*Provider)(nil)
	_ libdns.RecordAppender = (*Provider)(nil)
	_ libdns.RecordSetter   = (*Provider)(nil)
	_ libdns.RecordDeleter  = (*Provider)(nil)
	_ libdns.ZoneLister     = (*Provider)(nil)
)
