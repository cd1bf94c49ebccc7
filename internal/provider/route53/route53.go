// Package route53 implements the authority boundary against AWS Route 53.
package route53

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/bradleysepos/aws-ddns/internal/config"
	"github.com/bradleysepos/aws-ddns/internal/metrics"
	"github.com/bradleysepos/aws-ddns/internal/provider"
)

type Provider struct {
	client  *route53.Client
	metrics *metrics.Metrics
}

// New builds a Route 53 client from the AWS shared configuration, optionally
// pinned to a named profile.
func New(ctx context.Context, cfg config.Authority, m *metrics.Metrics) (*Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Provider{
		client:  route53.NewFromConfig(awsCfg),
		metrics: m,
	}, nil
}

// CurrentRecord lists at most one record set starting at the identity's name
// and type. Route 53 returns sets in name order, so a response whose first
// set does not match the identity means the record does not exist.
func (p *Provider) CurrentRecord(ctx context.Context, id provider.Identity) (*provider.Record, error) {
	slog.Debug("listing record set", "zone", id.ZoneID, "name", id.Name, "type", id.Type)
	start := time.Now()

	in := &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(id.ZoneID),
		StartRecordName: aws.String(id.Name),
		StartRecordType: types.RRType(id.Type),
		MaxItems:        aws.Int32(1),
	}
	out, err := p.client.ListResourceRecordSets(ctx, in)
	if err != nil {
		p.metrics.IncProviderRequest("read", false)
		return nil, fmt.Errorf("list resource record sets: %w", err)
	}
	p.metrics.IncProviderRequest("read", true)
	slog.Debug("listed record sets", "count", len(out.ResourceRecordSets), "duration", time.Since(start))

	if len(out.ResourceRecordSets) == 0 {
		return nil, nil
	}
	rrset := out.ResourceRecordSets[0]
	if !strings.EqualFold(aws.ToString(rrset.Name), id.Name) || rrset.Type != types.RRType(id.Type) {
		return nil, nil
	}
	if len(rrset.ResourceRecords) == 0 {
		return nil, nil
	}
	return &provider.Record{
		Value: aws.ToString(rrset.ResourceRecords[0].Value),
		TTL:   aws.ToInt64(rrset.TTL),
	}, nil
}

// SubmitChange upserts the record set to a single value.
func (p *Provider) SubmitChange(ctx context.Context, id provider.Identity, value string, ttl int64, comment string) (provider.ChangeInfo, string, error) {
	slog.Info("submitting record change", "zone", id.ZoneID, "name", id.Name, "type", id.Type, "value", value, "ttl", ttl)

	in := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(id.ZoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String(comment),
			Changes: []types.Change{{
				Action: types.ChangeActionUpsert,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            aws.String(id.Name),
					Type:            types.RRType(id.Type),
					TTL:             aws.Int64(ttl),
					ResourceRecords: []types.ResourceRecord{{Value: aws.String(value)}},
				},
			}},
		},
	}
	out, err := p.client.ChangeResourceRecordSets(ctx, in)
	transcript := provider.Transcript("submit", in, out, err)
	if err != nil {
		p.metrics.IncProviderRequest("submit", false)
		return provider.ChangeInfo{}, transcript, fmt.Errorf("change resource record sets: %w", err)
	}
	p.metrics.IncProviderRequest("submit", true)

	info, err := parseChangeInfo(out.ChangeInfo)
	if err != nil {
		return provider.ChangeInfo{}, transcript, err
	}
	slog.Info("change submitted", "change", info.ID, "status", info.Status)
	return info, transcript, nil
}

// GetChangeStatus queries propagation of an earlier change.
func (p *Provider) GetChangeStatus(ctx context.Context, changeID string) (provider.ChangeStatus, string, error) {
	in := &route53.GetChangeInput{Id: aws.String(changeID)}
	out, err := p.client.GetChange(ctx, in)
	transcript := provider.Transcript("poll", in, out, err)
	if err != nil {
		p.metrics.IncProviderRequest("poll", false)
		return "", transcript, fmt.Errorf("get change: %w", err)
	}
	p.metrics.IncProviderRequest("poll", true)

	info, err := parseChangeInfo(out.ChangeInfo)
	if err != nil {
		return "", transcript, err
	}
	return info.Status, transcript, nil
}

func parseChangeInfo(ci *types.ChangeInfo) (provider.ChangeInfo, error) {
	if ci == nil || aws.ToString(ci.Id) == "" || ci.Status == "" {
		return provider.ChangeInfo{}, fmt.Errorf("%w: missing change info", provider.ErrUnparseableResponse)
	}
	// Route 53 reports ids as "/change/C123..."; keep only the bare id so it
	// can be fed straight back into GetChange.
	changeID := strings.TrimPrefix(aws.ToString(ci.Id), "/change/")
	status := provider.StatusPending
	if ci.Status == types.ChangeStatusInsync {
		status = provider.StatusInsync
	}
	return provider.ChangeInfo{ID: changeID, Status: status}, nil
}
