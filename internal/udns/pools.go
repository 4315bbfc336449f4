package udns

import (
	"context"
	"maps"
)

// Pool profile schemas.
const (
	SBPoolSchema = "http://schemas.ultradns.com/SBPool.jsonschema"
	TCPoolSchema = "http://schemas.ultradns.com/TCPool.jsonschema"
)

// RDataInfo describes one member of an SB or TC pool. Weight is only used
// by TC pools.
type RDataInfo struct {
	State         string `json:"state,omitempty"`
	RunProbes     bool   `json:"runProbes"`
	Priority      int    `json:"priority"`
	FailoverDelay int    `json:"failoverDelay"`
	Threshold     int    `json:"threshold"`
	Weight        int    `json:"weight,omitempty"`
}

// PoolMember pairs a member's rdata with its pool settings. Members are
// sent in slice order; the API matches rdata and rdataInfo by position.
type PoolMember struct {
	RData string
	Info  RDataInfo
}

// BackupRecord is the all-fail record of a pool.
type BackupRecord struct {
	RData         string `json:"rdata"`
	FailoverDelay int    `json:"failoverDelay,omitempty"`
}

// Pool is the shared part of an SB or TC pool definition. Info holds the
// pool-level profile fields (description, runProbes, actOnProbes, order,
// maxActive, maxServed, maxToLB).
type Pool struct {
	TTL     int
	Info    map[string]any
	Members []PoolMember
}

func (p Pool) rrset(schema, backupKey string, backup any) rrsetBody {
	rdata := make([]string, len(p.Members))
	infos := make([]RDataInfo, len(p.Members))

	for i, m := range p.Members {
		rdata[i] = m.RData
		infos[i] = m.Info
	}

	profile := map[string]any{
		"@context":  schema,
		"rdataInfo": infos,
		backupKey:   backup,
	}
	maps.Copy(profile, p.Info)

	ttl := p.TTL

	return rrsetBody{TTL: &ttl, RData: rdata, Profile: profile}
}

func poolPath(zoneName, owner string) string {
	return rrsetPath(zoneName, "A", owner)
}

// CreateSBPool creates a SiteBacker pool at owner.
func (c *Client) CreateSBPool(ctx context.Context, zoneName, owner string, pool Pool, backups []BackupRecord) (*Response, error) {
	return c.Post(ctx, poolPath(zoneName, owner), pool.rrset(SBPoolSchema, "backupRecords", nonNil(backups)))
}

// EditSBPool replaces a SiteBacker pool.
func (c *Client) EditSBPool(ctx context.Context, zoneName, owner string, pool Pool, backups []BackupRecord) (*Response, error) {
	return c.Put(ctx, poolPath(zoneName, owner), pool.rrset(SBPoolSchema, "backupRecords", nonNil(backups)))
}

// CreateTCPool creates a Traffic Controller pool at owner.
func (c *Client) CreateTCPool(ctx context.Context, zoneName, owner string, pool Pool, backup *BackupRecord) (*Response, error) {
	return c.Post(ctx, poolPath(zoneName, owner), pool.rrset(TCPoolSchema, "backupRecord", backup))
}

// EditTCPool replaces a Traffic Controller pool.
func (c *Client) EditTCPool(ctx context.Context, zoneName, owner string, pool Pool, backup *BackupRecord) (*Response, error) {
	return c.Put(ctx, poolPath(zoneName, owner), pool.rrset(TCPoolSchema, "backupRecord", backup))
}

// nonNil keeps an absent backup list encoding as [] rather than null.
func nonNil(backups []BackupRecord) []BackupRecord {
	if backups == nil {
		return []BackupRecord{}
	}

	return backups
}
