package ramp

import (
	"context"
	"sync"

	stellarramp "github.com/stellar-ramp/sdk-go"
	"github.com/stellar-ramp/sdk-go/errors"
)

// Process is a handle to one in-flight ramp transaction. It tracks the local
// lifecycle phase alongside the provider-reported canonical status and drives
// the transaction to a terminal state via Execute.
//
// A Process is safe for concurrent use. Callbacks run synchronously on the
// goroutine that observed the change; keep them short.
type Process struct {
	engine *Engine
	kind   stellarramp.RampKind

	mu    sync.Mutex
	tx    *stellarramp.RampTransaction
	phase Phase

	onStatusChange []func(stellarramp.TransactionStatus)
	onPhaseChange  []func(Phase)
}

func newProcess(engine *Engine, kind stellarramp.RampKind, tx *stellarramp.RampTransaction) *Process {
	return &Process{
		engine: engine,
		kind:   kind,
		tx:     tx,
		phase:  PhaseCreated,
	}
}

// Transaction returns a snapshot of the current transaction state.
func (p *Process) Transaction() stellarramp.RampTransaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.tx
}

// Phase returns the current lifecycle phase.
func (p *Process) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// OnStatusChange registers a callback fired whenever the canonical status
// changes. Registration is not retroactive.
func (p *Process) OnStatusChange(fn func(stellarramp.TransactionStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStatusChange = append(p.onStatusChange, fn)
}

// OnPhaseChange registers a callback fired on every lifecycle phase change.
func (p *Process) OnPhaseChange(fn func(Phase)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPhaseChange = append(p.onPhaseChange, fn)
}

// setPhase advances the lifecycle, enforcing the legal transition table.
func (p *Process) setPhase(next Phase) error {
	p.mu.Lock()
	if err := ValidateTransition(p.phase, next); err != nil {
		p.mu.Unlock()
		return err
	}
	p.phase = next
	handlers := make([]func(Phase), len(p.onPhaseChange))
	copy(handlers, p.onPhaseChange)
	p.mu.Unlock()

	for _, fn := range handlers {
		fn(next)
	}
	return nil
}

// applyTransaction swaps in a fresh transaction snapshot and fires status
// callbacks if the canonical status changed.
func (p *Process) applyTransaction(tx *stellarramp.RampTransaction) {
	p.mu.Lock()
	prev := p.tx.Status
	p.tx = tx
	changed := tx.Status != prev
	var handlers []func(stellarramp.TransactionStatus)
	if changed {
		handlers = make([]func(stellarramp.TransactionStatus), len(p.onStatusChange))
		copy(handlers, p.onStatusChange)
	}
	status := tx.Status
	p.mu.Unlock()

	for _, fn := range handlers {
		fn(status)
	}
}

// refresh fetches the transaction from the provider and folds the result into
// the process. Unlike the engine's public getters, a vanished transaction
// mid-lifecycle is an error here, not a nil result.
func (p *Process) refresh(ctx context.Context) error {
	p.mu.Lock()
	id := p.tx.ID
	prev := p.tx.Status
	prevHash := p.tx.StellarTxHash
	prevSignable := p.tx.SignableTransaction
	p.mu.Unlock()

	var tx *stellarramp.RampTransaction
	var err error
	if p.kind == stellarramp.KindOnRamp {
		tx, err = p.engine.adapter.GetOnRampTransaction(ctx, id)
	} else {
		tx, err = p.engine.adapter.GetOffRampTransaction(ctx, id)
	}
	if err != nil {
		return err
	}

	tx.Kind = p.kind
	// Locally known facts survive a provider response that omits them.
	if tx.StellarTxHash == "" {
		tx.StellarTxHash = prevHash
	}
	if tx.SignableTransaction == "" {
		tx.SignableTransaction = prevSignable
	}
	p.engine.canonicalize(tx, prev)
	p.applyTransaction(tx)
	return nil
}

// Execute drives the transaction to a terminal canonical status and returns
// it. Terminal failure statuses (failed, expired, cancelled) are outcomes,
// not errors; the error return covers lifecycle faults such as signing or
// submission failures and the polling ceiling.
//
// The flow is capability-driven. Off-ramps against providers that prepare the
// signable payload out-of-band first poll until it appears. A present payload
// is signed and then delivered either back to the anchor or directly to the
// Stellar network, per the provider's descriptor. Transactions with neither
// path (fiat payment instructions) go straight to status polling.
func (p *Process) Execute(ctx context.Context) (stellarramp.TransactionStatus, error) {
	ctx, cancel := p.engine.withCeiling(ctx)
	defer cancel()

	snapshot := p.Transaction()
	expectSignable := p.kind == stellarramp.KindOffRamp && p.engine.caps.RequiresOffRampSigning

	if snapshot.SignableTransaction == "" && expectSignable {
		if err := p.setPhase(PhaseAwaitingSignable); err != nil {
			return "", err
		}
		err := p.engine.poller.Run(ctx, snapshot.ID, func(tickCtx context.Context) (bool, error) {
			if err := p.refresh(tickCtx); err != nil {
				return false, err
			}
			return p.Transaction().SignableTransaction != "", nil
		})
		if err != nil {
			return "", err
		}
		snapshot = p.Transaction()
	}

	if snapshot.SignableTransaction != "" {
		if err := p.signAndDeliver(ctx, snapshot); err != nil {
			return "", err
		}
	}

	if err := p.setPhase(PhasePolling); err != nil {
		return "", err
	}
	err := p.engine.poller.Run(ctx, snapshot.ID, func(tickCtx context.Context) (bool, error) {
		if err := p.refresh(tickCtx); err != nil {
			return false, err
		}
		return p.Transaction().Status.Terminal(), nil
	})
	if err != nil {
		return "", err
	}

	if err := p.setPhase(PhaseDone); err != nil {
		return "", err
	}
	return p.Transaction().Status, nil
}

// signAndDeliver signs the signable payload and delivers it per the
// provider's descriptor: back to the anchor as a payout submission, or
// directly to the Stellar network.
func (p *Process) signAndDeliver(ctx context.Context, snapshot stellarramp.RampTransaction) error {
	if p.engine.signer == nil {
		return errors.NewValidationError(errors.CONFIG_INVALID,
			"transaction requires signing but no signer is configured", nil)
	}

	if err := p.setPhase(PhaseSigning); err != nil {
		return err
	}
	signedXDR, err := p.engine.signer.SignTransaction(ctx, snapshot.SignableTransaction, p.engine.networkPassphrase)
	if err != nil {
		return errors.NewStateError(errors.SIGNER_ERROR,
			"failed to sign transaction "+snapshot.ID, err)
	}

	if err := p.setPhase(PhaseSubmitted); err != nil {
		return err
	}

	if p.engine.caps.RequiresAnchorPayoutSubmission {
		submission := stellarramp.PayoutSubmission{
			QuoteID:           snapshot.QuoteID,
			SourceAddress:     snapshot.StellarAddress,
			SignedTransaction: signedXDR,
		}
		if err := p.engine.adapter.SubmitPayout(ctx, submission); err != nil {
			return err
		}
		return nil
	}

	if p.engine.submitter == nil {
		return errors.NewValidationError(errors.CONFIG_INVALID,
			"provider expects direct network submission but no submitter is configured", nil)
	}
	hash, err := p.engine.submitter.SubmitTransaction(ctx, signedXDR)
	if err != nil {
		return errors.NewStateError(errors.SUBMIT_FAILED,
			"failed to submit signed transaction "+snapshot.ID+" to the network", err)
	}

	p.mu.Lock()
	p.tx.StellarTxHash = hash
	p.mu.Unlock()
	return nil
}
