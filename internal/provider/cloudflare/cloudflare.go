// Package cloudflare implements the authority boundary against Cloudflare.
//
// Cloudflare applies record changes synchronously, so submissions report
// terminal success immediately and status queries never observe a pending
// change.
package cloudflare

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudflare/cloudflare-go"

	"github.com/bradleysepos/aws-ddns/internal/config"
	"github.com/bradleysepos/aws-ddns/internal/metrics"
	"github.com/bradleysepos/aws-ddns/internal/provider"
)

type Provider struct {
	client  *cloudflare.API
	metrics *metrics.Metrics
}

func New(cfg config.Authority, m *metrics.Metrics) (*Provider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("cloudflare API token required")
	}
	client, err := cloudflare.NewWithAPIToken(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create cloudflare client: %w", err)
	}
	return &Provider{client: client, metrics: m}, nil
}

func (p *Provider) CurrentRecord(ctx context.Context, id provider.Identity) (*provider.Record, error) {
	rec, err := p.findRecord(ctx, id)
	p.metrics.IncProviderRequest("read", err == nil)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return &provider.Record{Value: rec.Content, TTL: int64(rec.TTL)}, nil
}

func (p *Provider) SubmitChange(ctx context.Context, id provider.Identity, value string, ttl int64, comment string) (provider.ChangeInfo, string, error) {
	slog.Info("submitting record change", "zone", id.ZoneID, "name", id.Name, "type", id.Type, "value", value, "ttl", ttl)

	existing, err := p.findRecord(ctx, id)
	if err != nil {
		p.metrics.IncProviderRequest("submit", false)
		return provider.ChangeInfo{}, provider.Transcript("submit", id, nil, err), err
	}

	if existing != nil {
		params := cloudflare.UpdateDNSRecordParams{
			ID:      existing.ID,
			Type:    string(id.Type),
			Name:    recordName(id),
			Content: value,
			TTL:     int(ttl),
		}
		rec, err := p.client.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(id.ZoneID), params)
		transcript := provider.Transcript("submit", params, rec, err)
		if err != nil {
			p.metrics.IncProviderRequest("submit", false)
			return provider.ChangeInfo{}, transcript, fmt.Errorf("update dns record: %w", err)
		}
		p.metrics.IncProviderRequest("submit", true)
		return changeInfo(rec, transcript)
	}

	params := cloudflare.CreateDNSRecordParams{
		Type:    string(id.Type),
		Name:    recordName(id),
		Content: value,
		TTL:     int(ttl),
		Comment: comment,
	}
	rec, err := p.client.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(id.ZoneID), params)
	transcript := provider.Transcript("submit", params, rec, err)
	if err != nil {
		p.metrics.IncProviderRequest("submit", false)
		return provider.ChangeInfo{}, transcript, fmt.Errorf("create dns record: %w", err)
	}
	p.metrics.IncProviderRequest("submit", true)
	return changeInfo(rec, transcript)
}

// GetChangeStatus always reports terminal success. It exists to satisfy the
// boundary; skip-to-terminal on submit means the engine never polls here.
func (p *Provider) GetChangeStatus(ctx context.Context, changeID string) (provider.ChangeStatus, string, error) {
	p.metrics.IncProviderRequest("poll", true)
	return provider.StatusInsync, provider.Transcript("poll", changeID, provider.StatusInsync, nil), nil
}

func (p *Provider) findRecord(ctx context.Context, id provider.Identity) (*cloudflare.DNSRecord, error) {
	params := cloudflare.ListDNSRecordsParams{
		Type: string(id.Type),
		Name: recordName(id),
		ResultInfo: cloudflare.ResultInfo{
			PerPage: 1,
		},
	}
	records, _, err := p.client.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(id.ZoneID), params)
	if err != nil {
		return nil, fmt.Errorf("list dns records: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func changeInfo(rec cloudflare.DNSRecord, transcript string) (provider.ChangeInfo, string, error) {
	if rec.ID == "" {
		return provider.ChangeInfo{}, transcript, fmt.Errorf("%w: missing record id", provider.ErrUnparseableResponse)
	}
	return provider.ChangeInfo{ID: rec.ID, Status: provider.StatusInsync}, transcript, nil
}

// Cloudflare names records without the trailing dot.
func recordName(id provider.Identity) string {
	return strings.TrimSuffix(id.Name, ".")
}
