package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/repositories"
	"github.com/desertthunder/docmigrate/internal/services"
	"github.com/desertthunder/docmigrate/internal/shared"
)

// ResolutionKind discriminates a [Resolution].
type ResolutionKind int

const (
	// ResolutionMapped means the local mapping store already knows the profile.
	ResolutionMapped ResolutionKind = iota
	// ResolutionResolved means the identity was resolved through the directory and auth provider.
	ResolutionResolved
)

func (k ResolutionKind) String() string {
	if k == ResolutionMapped {
		return "mapped"
	}
	return "resolved"
}

// Resolution is the identity found for one cached profile.
//
// Mapping is set for [ResolutionMapped]. Account, Record and Email are set for
// [ResolutionResolved]. In a dry run Account describes the account that would be created
// when Created is true.
type Resolution struct {
	Kind      ResolutionKind
	Mapping   *models.IdentityMapping
	Account   *services.AuthAccount
	Record    *services.DirectoryRecord
	Email     string
	Secondary bool
	Created   bool
	Linked    bool
}

// RejectReason explains why a profile could not be resolved.
type RejectReason string

const (
	RejectNotFound       RejectReason = "not-found"
	RejectAmbiguous      RejectReason = "ambiguous"
	RejectNoPrimaryEmail RejectReason = "no-primary-email"
	RejectUpstream       RejectReason = "upstream-failure"
)

// RejectedError reports a profile that could not be resolved to an identity.
type RejectedError struct {
	Unit    string
	SSOGuid string
	Reason  RejectReason
	Matches int
	Cause   error
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("identity rejected for %s (ssoGuid %s): %s", e.Unit, e.SSOGuid, e.Reason)
	if e.Reason == RejectAmbiguous {
		msg += fmt.Sprintf(" (%d matches)", e.Matches)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RejectedError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return shared.ErrNotFound
}

// Details exposes the rejection to the error sink.
func (e *RejectedError) Details() any {
	return map[string]any{"reason": e.Reason, "ssoGuid": e.SSOGuid, "matches": e.Matches}
}

// IdentityEngine resolves cached profiles against the mapping store, the SSO directory and
// the auth provider.
type IdentityEngine struct {
	mappings   *repositories.MappingRepository
	auth       services.IdentityProvider
	providerID string
	logger     *log.Logger
}

// NewIdentityEngine creates an [IdentityEngine] that links accounts to providerID.
func NewIdentityEngine(mappings *repositories.MappingRepository, auth services.IdentityProvider, providerID string, logger *log.Logger) *IdentityEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &IdentityEngine{mappings: mappings, auth: auth, providerID: providerID, logger: logger}
}

// Resolve finds the identity for p. A known ssoGuid returns immediately without external
// calls. Directory and auth provider failures come back as a [*RejectedError]; mapping store
// failures are returned as is. A dry run performs lookups only.
func (e *IdentityEngine) Resolve(ctx context.Context, dir services.Directory, unit string, p *models.UserProfile, dryRun bool) (Resolution, error) {
	existing, err := e.mappings.FindBySSOGuid(ctx, p.SSOGuid)
	if err != nil {
		return Resolution{}, err
	}
	if m, ok := existing.Get(); ok {
		return Resolution{Kind: ResolutionMapped, Mapping: m}, nil
	}

	logger := shared.WithLogger(e.logger, "file", unit, "ssoGuid", p.SSOGuid)
	reject := func(reason RejectReason, cause error) error {
		if cause != nil {
			logger.Warn("identity resolution failed", "reason", reason, "err", cause)
		}
		return &RejectedError{Unit: unit, SSOGuid: p.SSOGuid, Reason: reason, Cause: cause}
	}

	records, err := dir.Search(ctx, p.SSOGuid)
	if err != nil {
		return Resolution{}, reject(RejectUpstream, err)
	}
	switch len(records) {
	case 0:
		return Resolution{}, reject(RejectNotFound, nil)
	case 1:
	default:
		rej := reject(RejectAmbiguous, nil).(*RejectedError)
		rej.Matches = len(records)
		return Resolution{}, rej
	}

	record := records[0]
	primary, ok := record.PrimaryEmail()
	if !ok {
		return Resolution{}, reject(RejectNoPrimaryEmail, nil)
	}

	res := Resolution{
		Kind:      ResolutionResolved,
		Record:    &record,
		Email:     shared.NormalizeEmail(primary.Value),
		Secondary: shared.NormalizeEmail(primary.Value) != shared.NormalizeEmail(p.Email),
	}

	lookup, err := e.auth.GetByEmail(ctx, res.Email)
	if err != nil {
		return Resolution{}, reject(RejectUpstream, err)
	}

	if acct, ok := lookup.Get(); ok {
		res.Account = &acct
		if acct.HasProvider(e.providerID, p.SSOGuid) {
			return res, nil
		}
		res.Linked = true
		if dryRun {
			return res, nil
		}
		if err := e.link(ctx, &acct, p.SSOGuid, record.Name()); err != nil {
			return Resolution{}, reject(RejectUpstream, err)
		}
		return res, nil
	}

	res.Created, res.Linked = true, true
	if dryRun {
		res.Account = &services.AuthAccount{Email: res.Email, EmailVerified: primary.Verified(), DisplayName: record.Name()}
		return res, nil
	}

	acct, err := e.auth.Create(ctx, res.Email, primary.Verified(), record.Name())
	if err != nil {
		return Resolution{}, reject(RejectUpstream, fmt.Errorf("create account: %w", err))
	}
	if err := e.link(ctx, acct, p.SSOGuid, record.Name()); err != nil {
		return Resolution{}, reject(RejectUpstream, err)
	}
	logger.Debug("created auth account", "uid", acct.LocalID, "email", res.Email)
	res.Account = acct
	return res, nil
}

func (e *IdentityEngine) link(ctx context.Context, acct *services.AuthAccount, guid, displayName string) error {
	if err := e.auth.LinkFederatedProvider(ctx, acct.LocalID, e.providerID, guid, displayName, acct.Email); err != nil {
		return fmt.Errorf("link provider: %w", err)
	}
	acct.ProviderUserInfo = append(acct.ProviderUserInfo, services.ProviderInfo{
		ProviderID: e.providerID, RawID: guid, DisplayName: displayName, Email: acct.Email,
	})
	return nil
}
