package udns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Zone types.
const (
	ZonePrimary   = "PRIMARY"
	ZoneSecondary = "SECONDARY"
	ZoneAlias     = "ALIAS"
)

// Primary zone create types.
const (
	createNew      = "NEW"
	createUpload   = "UPLOAD"
	createTransfer = "TRANSFER"
)

const zonesPath = "/v1/zones"

type zoneProperties struct {
	Name        string `json:"name"`
	AccountName string `json:"accountName"`
	Type        string `json:"type"`
}

type nameServer struct {
	IP           string `json:"ip"`
	TSIGKey      string `json:"tsigKey,omitempty"`
	TSIGKeyValue string `json:"tsigKeyValue,omitempty"`
}

type primaryCreateInfo struct {
	ForceImport bool        `json:"forceImport"`
	CreateType  string      `json:"createType"`
	NameServer  *nameServer `json:"nameServer,omitempty"`
}

type nameServerIPList struct {
	NameServerIPList map[string]nameServer `json:"nameServerIpList"`
}

type secondaryCreateInfo struct {
	PrimaryNameServers nameServerIPList `json:"primaryNameServers"`
}

type zoneCreateRequest struct {
	Properties          *zoneProperties      `json:"properties,omitempty"`
	PrimaryCreateInfo   *primaryCreateInfo   `json:"primaryCreateInfo,omitempty"`
	SecondaryCreateInfo *secondaryCreateInfo `json:"secondaryCreateInfo,omitempty"`
}

// TSIG is an optional transaction signature for zone transfers. Both fields
// must be set for it to be sent.
type TSIG struct {
	Key   string
	Value string
}

func (t *TSIG) apply(ns *nameServer) {
	if t != nil && t.Key != "" && t.Value != "" {
		ns.TSIGKey = t.Key
		ns.TSIGKeyValue = t.Value
	}
}

func zonePath(zone string) string {
	return joinPath(zonesPath, zone)
}

// CreatePrimaryZone creates an empty primary zone.
func (c *Client) CreatePrimaryZone(ctx context.Context, accountName, zoneName string) (*Response, error) {
	c.logger.Info("creating primary zone", slog.String("zone", zoneName))

	return c.Post(ctx, zonesPath, zoneCreateRequest{
		Properties:        &zoneProperties{Name: zoneName, AccountName: accountName, Type: ZonePrimary},
		PrimaryCreateInfo: &primaryCreateInfo{ForceImport: true, CreateType: createNew},
	})
}

// CreatePrimaryZoneByUpload creates a primary zone from BIND zone file
// contents. The API answers 202 with a task id.
func (c *Client) CreatePrimaryZoneByUpload(ctx context.Context, accountName, zoneName string, bindFile []byte) (*Response, error) {
	c.logger.Info("creating primary zone from upload",
		slog.String("zone", zoneName),
		slog.Int("bytes", len(bindFile)),
	)

	meta, err := json.Marshal(zoneCreateRequest{
		Properties:        &zoneProperties{Name: zoneName, AccountName: accountName, Type: ZonePrimary},
		PrimaryCreateInfo: &primaryCreateInfo{ForceImport: true, CreateType: createUpload},
	})
	if err != nil {
		return nil, fmt.Errorf("udns: encoding zone upload request: %w", err)
	}

	return c.PostMultipart(ctx, zonesPath, []FilePart{
		{Field: "zone", ContentType: contentTypeJSON, Content: meta},
		{Field: "file", FileName: "file", ContentType: "application/octet-stream", Content: bindFile},
	})
}

// CreatePrimaryZoneByAXFR creates a primary zone by transferring it from
// master.
func (c *Client) CreatePrimaryZoneByAXFR(ctx context.Context, accountName, zoneName, master string, tsig *TSIG) (*Response, error) {
	ns := nameServer{IP: master}
	tsig.apply(&ns)

	return c.Post(ctx, zonesPath, zoneCreateRequest{
		Properties:        &zoneProperties{Name: zoneName, AccountName: accountName, Type: ZonePrimary},
		PrimaryCreateInfo: &primaryCreateInfo{ForceImport: true, CreateType: createTransfer, NameServer: &ns},
	})
}

// CreateSecondaryZone creates a secondary zone served from master.
func (c *Client) CreateSecondaryZone(ctx context.Context, accountName, zoneName, master string, tsig *TSIG) (*Response, error) {
	ns := nameServer{IP: master}
	tsig.apply(&ns)

	return c.Post(ctx, zonesPath, zoneCreateRequest{
		Properties: &zoneProperties{Name: zoneName, AccountName: accountName, Type: ZoneSecondary},
		SecondaryCreateInfo: &secondaryCreateInfo{
			PrimaryNameServers: nameServerIPList{
				NameServerIPList: map[string]nameServer{"nameServerIp1": ns},
			},
		},
	})
}

// ForceAXFR forces a transfer of a secondary zone.
func (c *Client) ForceAXFR(ctx context.Context, zoneName string) (*Response, error) {
	return c.Post(ctx, zonePath(zoneName)+"/transfer", nil)
}

// ConvertZone converts a secondary zone to primary. This cannot be undone.
func (c *Client) ConvertZone(ctx context.Context, zoneName string) (*Response, error) {
	return c.Post(ctx, zonePath(zoneName)+"/convert", nil)
}

// ZonesOfAccount lists the zones of one account.
func (c *Client) ZonesOfAccount(ctx context.Context, accountName string, opts *ListOptions) (*Response, error) {
	return c.Get(ctx, joinPath("/v1/accounts", accountName)+"/zones", opts.Values())
}

// Zones lists zones visible to the user (v1 offset paging).
func (c *Client) Zones(ctx context.Context, opts *ListOptions) (*Response, error) {
	return c.Get(ctx, zonesPath, opts.Values())
}

// ZonesV3 lists zones with v3 cursor paging.
func (c *Client) ZonesV3(ctx context.Context, opts *ListOptions) (*Response, error) {
	return c.Get(ctx, "/v3/zones", opts.Values())
}

// ZoneMetadata returns a zone's properties.
func (c *Client) ZoneMetadata(ctx context.Context, zoneName string) (*Response, error) {
	return c.Get(ctx, zonePath(zoneName), nil)
}

// ZoneMetadataV3 returns a zone's properties from the v3 API.
func (c *Client) ZoneMetadataV3(ctx context.Context, zoneName string) (*Response, error) {
	return c.Get(ctx, joinPath("/v3/zones", zoneName), nil)
}

// DeleteZone deletes a zone and everything in it.
func (c *Client) DeleteZone(ctx context.Context, zoneName string) (*Response, error) {
	c.logger.Info("deleting zone", slog.String("zone", zoneName))

	return c.Delete(ctx, zonePath(zoneName))
}

// EditSecondaryNameServer replaces the transfer sources of a secondary zone.
// Empty backup addresses are omitted.
func (c *Client) EditSecondaryNameServer(ctx context.Context, zoneName, primary, backup, secondBackup string) (*Response, error) {
	servers := make(map[string]nameServer)

	for i, ip := range []string{primary, backup, secondBackup} {
		if ip != "" {
			servers[fmt.Sprintf("nameServerIp%d", i+1)] = nameServer{IP: ip}
		}
	}

	return c.Patch(ctx, zonePath(zoneName), zoneCreateRequest{
		SecondaryCreateInfo: &secondaryCreateInfo{
			PrimaryNameServers: nameServerIPList{NameServerIPList: servers},
		},
	})
}

// ExportZone exports zones in BIND format. The export runs as a task: this
// waits for it, fetches the result (text for one zone, a zip for several),
// and clears the task. A task that ends in ERROR is returned as the result.
// The task is polled through resolver, which sets the poll interval and
// progress callback; nil uses NewTaskResolver(c).
func (c *Client) ExportZone(ctx context.Context, resolver *TaskResolver, zoneNames ...string) (*Response, error) {
	accepted, err := c.Post(ctx, "/v3/zones/export", map[string]any{"zoneNames": zoneNames})
	if err != nil {
		return nil, err
	}

	taskID := accepted.TaskID()
	if taskID == "" {
		return accepted, nil
	}

	if resolver == nil {
		resolver = NewTaskResolver(c)
	}

	status, err := resolver.waitTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if status.String("code") != TaskComplete {
		return status, nil
	}

	result, err := c.Get(ctx, taskPath(taskID)+"/result", nil)
	if err != nil {
		return nil, err
	}

	if _, err := c.ClearTask(ctx, taskID); err != nil {
		c.logger.Warn("clearing export task failed",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
	}

	return result, nil
}

// CreateSnapshot snapshots a zone. The API answers 202 with a task id.
func (c *Client) CreateSnapshot(ctx context.Context, zoneName string) (*Response, error) {
	return c.Post(ctx, zonePath(zoneName)+"/snapshot", nil)
}

// Snapshot returns the zone's current snapshot.
func (c *Client) Snapshot(ctx context.Context, zoneName string) (*Response, error) {
	return c.Get(ctx, zonePath(zoneName)+"/snapshot", nil)
}

// RestoreSnapshot restores the zone from its snapshot.
func (c *Client) RestoreSnapshot(ctx context.Context, zoneName string) (*Response, error) {
	return c.Post(ctx, zonePath(zoneName)+"/restore", nil)
}

// CreateHealthCheck starts a zone health check. The API answers 202 with a
// location to poll.
func (c *Client) CreateHealthCheck(ctx context.Context, zoneName string) (*Response, error) {
	return c.Post(ctx, zonePath(zoneName)+"/healthchecks", nil)
}

// HealthCheck returns the latest zone health check.
func (c *Client) HealthCheck(ctx context.Context, zoneName string) (*Response, error) {
	return c.Get(ctx, zonePath(zoneName)+"/healthchecks", nil)
}
