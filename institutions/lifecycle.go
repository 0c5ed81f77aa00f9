package institutions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metrics"
)

// AdminAuthorizer decides whether an address may run admin lifecycle actions.
type AdminAuthorizer interface {
	IsAdmin(ctx context.Context, addr common.Address) bool
}

// StaticAdmin authorizes a single configured address.
type StaticAdmin common.Address

func (a StaticAdmin) IsAdmin(_ context.Context, addr common.Address) bool {
	return common.Address(a) != (common.Address{}) && common.Address(a) == addr
}

// Action names a lifecycle operation.
type Action string

const (
	ActionRegister   Action = "register"
	ActionVerify     Action = "verify"
	ActionSuspend    Action = "suspend"
	ActionReactivate Action = "reactivate"
	ActionMirror     Action = "mirror"
)

// Result is returned for every lifecycle action.
// Institution is the on-chain record as re-read after the action.
type Result struct {
	Action      Action                        `json:"action"`
	Outcome     interfaces.Outcome            `json:"outcome"`
	Address     common.Address                `json:"address"`
	Receipt     *interfaces.TxReceipt         `json:"receipt,omitempty"`
	Institution *interfaces.InstitutionRecord `json:"institution,omitempty"`
}

// RegisterRequest carries the self-registration details.
type RegisterRequest struct {
	Name          string `json:"name"`
	Country       string `json:"country"`
	AccreditedURL string `json:"accreditedURL"`
	Email         string `json:"email"`
}

// Status is the derived state of an institution across chain and mirror.
type Status struct {
	Address common.Address                `json:"address"`
	State   interfaces.InstitutionState   `json:"state"`
	OnChain *interfaces.InstitutionRecord `json:"onChain,omitempty"`
	Mirror  *interfaces.Institution       `json:"mirror,omitempty"`
}

// Entry is one row of the institution listing.
type Entry struct {
	Address common.Address                `json:"address"`
	OnChain *interfaces.InstitutionRecord `json:"onChain,omitempty"`
	Mirror  *interfaces.Institution       `json:"mirror,omitempty"`
}

// Lifecycle drives institution registration, verification and suspension.
// The registry is authoritative; the metadata store mirrors it after every write.
type Lifecycle struct {
	registry  interfaces.InstitutionRegistry
	store     interfaces.MetadataStore
	directory interfaces.InstitutionDirectory
	admin     AdminAuthorizer
	metrics   *metrics.Metrics
	now       func() time.Time
	log       *slog.Logger
}

// NewLifecycle creates a lifecycle orchestrator. directory may be nil, in which
// case List only returns mirrored institutions.
func NewLifecycle(registry interfaces.InstitutionRegistry, store interfaces.MetadataStore, directory interfaces.InstitutionDirectory, admin AdminAuthorizer, log *slog.Logger) *Lifecycle {
	return &Lifecycle{
		registry:  registry,
		store:     store,
		directory: directory,
		admin:     admin,
		now:       time.Now,
		log:       log,
	}
}

func (l *Lifecycle) SetMetrics(m *metrics.Metrics) {
	l.metrics = m
}

func (l *Lifecycle) finish(res *Result) (*Result, error) {
	l.metrics.LifecycleOutcome(string(res.Action), res.Outcome.Kind.String())
	switch res.Outcome.Kind {
	case interfaces.OutcomeFailure:
		return res, res.Outcome.Err
	case interfaces.OutcomePartialSuccess:
		l.log.Error("institution updated on-chain but mirror is stale", "action", res.Action, "address", res.Address.Hex(), "err", res.Outcome.Err)
	default:
		l.log.Info("institution updated", "action", res.Action, "address", res.Address.Hex())
	}
	return res, nil
}

func (l *Lifecycle) authorize(ctx context.Context, caller common.Address) error {
	if l.admin == nil || !l.admin.IsAdmin(ctx, caller) {
		return fmt.Errorf("%w: %s is not the registry admin", interfaces.ErrNotAuthorized, caller.Hex())
	}
	return nil
}

// Register self-registers caller on-chain and mirrors it as Pending.
func (l *Lifecycle) Register(ctx context.Context, caller common.Address, req RegisterRequest) (*Result, error) {
	res := &Result{Action: ActionRegister, Address: caller}

	if strings.TrimSpace(req.Name) == "" {
		res.Outcome = interfaces.Failed(interfaces.StageChainConfirming, fmt.Errorf("%w: institution name is required", interfaces.ErrInvalidInput))
		return l.finish(res)
	}

	receipt, err := l.registry.RegisterInstitution(ctx, req.Name, req.Country, req.AccreditedURL, req.Email)
	if err != nil {
		res.Outcome = interfaces.Failed(interfaces.StageChainConfirming, err)
		return l.finish(res)
	}
	res.Receipt = receipt

	res.Outcome = l.reconcile(ctx, res, interfaces.InstitutionPatch{})
	return l.finish(res)
}

// Verify marks an institution verified on-chain and mirrors it as Active.
func (l *Lifecycle) Verify(ctx context.Context, caller, addr common.Address) (*Result, error) {
	return l.transition(ctx, ActionVerify, caller, addr, l.registry.VerifyInstitution, func(now time.Time) interfaces.InstitutionPatch {
		status := interfaces.InstitutionStatusActive
		return interfaces.InstitutionPatch{Status: &status, VerifiedAt: &now}
	})
}

// Suspend clears the on-chain verification flag and mirrors the institution as Suspended.
func (l *Lifecycle) Suspend(ctx context.Context, caller, addr common.Address) (*Result, error) {
	return l.transition(ctx, ActionSuspend, caller, addr, l.registry.SuspendInstitution, func(now time.Time) interfaces.InstitutionPatch {
		status := interfaces.InstitutionStatusSuspended
		return interfaces.InstitutionPatch{Status: &status, SuspendedAt: &now}
	})
}

// Reactivate re-verifies a suspended institution on-chain.
func (l *Lifecycle) Reactivate(ctx context.Context, caller, addr common.Address) (*Result, error) {
	return l.transition(ctx, ActionReactivate, caller, addr, l.registry.VerifyInstitution, func(now time.Time) interfaces.InstitutionPatch {
		status := interfaces.InstitutionStatusActive
		return interfaces.InstitutionPatch{Status: &status, ReactivatedAt: &now}
	})
}

func (l *Lifecycle) transition(ctx context.Context, action Action, caller, addr common.Address, write func(context.Context, common.Address) (*interfaces.TxReceipt, error), patch func(time.Time) interfaces.InstitutionPatch) (*Result, error) {
	res := &Result{Action: action, Address: addr}

	if err := l.authorize(ctx, caller); err != nil {
		res.Outcome = interfaces.Failed(interfaces.StageAuthorizing, err)
		return l.finish(res)
	}

	receipt, err := write(ctx, addr)
	if err != nil {
		res.Outcome = interfaces.Failed(interfaces.StageChainConfirming, err)
		return l.finish(res)
	}
	res.Receipt = receipt

	res.Outcome = l.reconcile(ctx, res, patch(l.now()))
	return l.finish(res)
}

// reconcile re-reads the on-chain record after a committed write and mirrors it.
// Any failure here leaves the chain ahead of the store and is a partial success.
func (l *Lifecycle) reconcile(ctx context.Context, res *Result, patch interfaces.InstitutionPatch) interfaces.Outcome {
	details, err := l.registry.GetInstitutionDetails(ctx, res.Address)
	if err != nil {
		return interfaces.PartiallySucceeded(interfaces.StagePersisting, fmt.Errorf("re-read institution: %w", err))
	}
	res.Institution = details

	if err := l.mirror(ctx, details, patch); err != nil {
		return interfaces.PartiallySucceeded(interfaces.StagePersisting, err)
	}
	return interfaces.Succeeded()
}

// mirror applies patch to the stored institution, creating it from details if absent.
// The verification flag always follows the chain.
func (l *Lifecycle) mirror(ctx context.Context, details *interfaces.InstitutionRecord, patch interfaces.InstitutionPatch) error {
	verified := details.IsVerified
	patch.IsVerified = &verified

	err := l.store.UpdateInstitution(ctx, details.WalletAddress, patch)
	if !interfaces.IsRecordNotFound(err) {
		return err
	}

	inst := &interfaces.Institution{
		Address:       details.WalletAddress,
		Name:          details.Name,
		Country:       details.Country,
		AccreditedURL: details.AccreditedURL,
		Email:         details.Email,
		IsVerified:    details.IsVerified,
		Status:        interfaces.InstitutionStatusPending,
		CreatedAt:     details.DateRegistered,
		VerifiedAt:    patch.VerifiedAt,
		SuspendedAt:   patch.SuspendedAt,
		ReactivatedAt: patch.ReactivatedAt,
	}
	if details.IsVerified {
		inst.Status = interfaces.InstitutionStatusActive
	}
	if patch.Status != nil {
		inst.Status = *patch.Status
	}
	_, err = l.store.CreateInstitution(ctx, inst)
	return err
}

// Mirror copies the on-chain record of addr into the metadata store.
func (l *Lifecycle) Mirror(ctx context.Context, caller, addr common.Address) (*Result, error) {
	res := &Result{Action: ActionMirror, Address: addr}

	if err := l.authorize(ctx, caller); err != nil {
		res.Outcome = interfaces.Failed(interfaces.StageAuthorizing, err)
		return l.finish(res)
	}

	details, err := l.registry.GetInstitutionDetails(ctx, addr)
	if err != nil {
		res.Outcome = interfaces.Failed(interfaces.StageLoading, err)
		return l.finish(res)
	}
	res.Institution = details

	var patch interfaces.InstitutionPatch
	if details.IsVerified {
		status := interfaces.InstitutionStatusActive
		patch.Status = &status
	}
	if err := l.mirror(ctx, details, patch); err != nil {
		res.Outcome = interfaces.Failed(interfaces.StagePersisting, err)
		return l.finish(res)
	}
	res.Outcome = interfaces.Succeeded()
	return l.finish(res)
}

// Status derives the four-state institution status. An on-chain pending
// institution whose mirror is Suspended is reported as Suspended.
func (l *Lifecycle) Status(ctx context.Context, addr common.Address) (*Status, error) {
	res := &Status{Address: addr, State: interfaces.InstitutionUnregistered}

	details, err := l.registry.GetInstitutionDetails(ctx, addr)
	switch {
	case interfaces.IsChainNotFound(err):
		return res, nil
	case err != nil:
		return nil, err
	}
	res.OnChain = details

	mirror, err := l.store.GetInstitutionByAddress(ctx, addr)
	if err != nil && !interfaces.IsRecordNotFound(err) {
		l.log.Warn("could not read institution mirror", "address", addr.Hex(), "err", err)
	}
	if err == nil {
		res.Mirror = mirror
	}

	switch {
	case details.IsVerified:
		res.State = interfaces.InstitutionVerified
	case res.Mirror != nil && res.Mirror.Status == interfaces.InstitutionStatusSuspended:
		res.State = interfaces.InstitutionSuspended
	default:
		res.State = interfaces.InstitutionPending
	}
	return res, nil
}

// List merges institutions discovered on-chain with mirrored ones. The
// on-chain part is best-effort; an error is returned only when both sources fail.
func (l *Lifecycle) List(ctx context.Context) ([]Entry, error) {
	byAddr := map[common.Address]*Entry{}
	var order []common.Address
	entry := func(addr common.Address) *Entry {
		e, ok := byAddr[addr]
		if !ok {
			e = &Entry{Address: addr}
			byAddr[addr] = e
			order = append(order, addr)
		}
		return e
	}

	var dirErr error
	if l.directory != nil {
		discovered, err := l.directory.ListInstitutions(ctx)
		if err != nil {
			dirErr = err
			l.log.Warn("institution directory unavailable", "err", err)
		}
		for _, d := range discovered {
			entry(d.Address).OnChain = d.Details
		}
	}

	mirrored, storeErr := l.store.ListInstitutions(ctx)
	if storeErr != nil {
		if dirErr != nil || l.directory == nil {
			return nil, errors.Join(dirErr, storeErr)
		}
		l.log.Warn("could not list mirrored institutions", "err", storeErr)
	}
	for i := range mirrored {
		entry(mirrored[i].Address).Mirror = &mirrored[i]
	}

	res := make([]Entry, 0, len(order))
	for _, addr := range order {
		res = append(res, *byAddr[addr])
	}
	sort.SliceStable(res, func(i, j int) bool {
		return registeredAt(res[i]).Before(registeredAt(res[j]))
	})
	return res, nil
}

func registeredAt(e Entry) time.Time {
	if e.OnChain != nil {
		return e.OnChain.DateRegistered
	}
	if e.Mirror != nil {
		return e.Mirror.CreatedAt
	}
	return time.Time{}
}

// Stats returns the registry-wide institution counters.
func (l *Lifecycle) Stats(ctx context.Context) (interfaces.InstitutionStats, error) {
	return l.registry.InstitutionStats(ctx)
}
