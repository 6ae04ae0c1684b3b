// Package lifecycle turns a payment that became successful into an invoice,
// a receipt email and a subscription renewal.
//
// The work runs as a saga over the payment row. A run first claims the row
// with a conditional update, then commits each step together with its
// durable side effect, recording the step reached in lifecycle_step. A
// duplicate or concurrent delivery fails to claim and does nothing; a failed
// run records lifecycle_error and can be redriven from the last committed
// step.
package lifecycle

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	invoicedomain "github.com/smallbiznis/ticketflow/internal/invoice/domain"
	"github.com/smallbiznis/ticketflow/internal/invoice/format"
	"github.com/smallbiznis/ticketflow/internal/invoice/render"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	"github.com/smallbiznis/ticketflow/internal/observability/metrics"
	"github.com/smallbiznis/ticketflow/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/ticketflow/internal/payment/domain"
	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
	"github.com/smallbiznis/ticketflow/internal/providers/email"
	"github.com/smallbiznis/ticketflow/internal/providers/pdf"
	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	tracerName = "lifecycle"

	// A claim older than this is treated as abandoned by a crashed worker.
	defaultClaimTTL = 10 * time.Minute
)

var (
	ErrMissingUID    = errors.New("lifecycle_missing_uid")
	ErrNotRedrivable = errors.New("lifecycle_not_redrivable")
	ErrBusy          = errors.New("lifecycle_in_progress")
	ErrRunFailed     = errors.New("lifecycle_failed")
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Result describes one run.
type Result struct {
	TxnID     string             `json:"txnId"`
	Outcome   Outcome            `json:"outcome"`
	Step      paymentdomain.Step `json:"step"`
	InvoiceNo string             `json:"invoiceNo,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type Engine struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	policy        *config.PolicyHolder
	payments      paymentdomain.Repository
	profiles      profiledomain.Service
	subscriptions subscriptiondomain.Service
	mail          maildomain.Service
	renderer      render.Renderer
	pdf           pdf.Renderer
	metrics       *metrics.Metrics

	claimTTL time.Duration
}

type EngineParam struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Policy        *config.PolicyHolder
	Payments      paymentdomain.Repository
	Profiles      profiledomain.Service
	Subscriptions subscriptiondomain.Service
	Mail          maildomain.Service
	Renderer      render.Renderer
	PDF           pdf.Renderer
	Metrics       *metrics.Metrics `optional:"true"`
}

func NewEngine(p EngineParam) *Engine {
	return &Engine{
		db:            p.DB,
		log:           p.Log.Named("lifecycle.engine"),
		clock:         p.Clock,
		policy:        p.Policy,
		payments:      p.Payments,
		profiles:      p.Profiles,
		subscriptions: p.Subscriptions,
		mail:          p.Mail,
		renderer:      p.Renderer,
		pdf:           p.PDF,
		metrics:       p.Metrics,
		claimTTL:      defaultClaimTTL,
	}
}

// Run processes a successful transaction from its last committed step.
// Losing the claim is not an error: another delivery owns or finished it.
func (e *Engine) Run(ctx context.Context, key tenant.Key, txnID string) (res Result, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "lifecycle.run",
		attribute.String("txn_id", txnID),
	)
	defer func() { tracing.EndSpan(span, err) }()

	res = Result{TxnID: txnID}
	log := ctxlogger.WithContext(ctx, e.log).With(
		zap.String("txn_id", txnID),
		zap.String("path", key.Path("payment_transactions", txnID)),
	)

	now := e.clock.Now()
	claim := paymentdomain.Claim{
		Key:       key,
		TxnID:     txnID,
		Token:     uuid.NewString(),
		ClaimedAt: now,
	}
	claimed, err := e.payments.Claim(ctx, e.db, claim, now.Add(-e.claimTTL))
	if err != nil {
		return res, fmt.Errorf("claim lifecycle: %w", err)
	}
	if !claimed {
		log.Debug("lifecycle.claim.skipped")
		e.metrics.RecordLifecycleStep("claim", "skipped")
		res.Outcome = OutcomeSkipped
		return res, nil
	}

	txn, err := e.payments.FindByID(ctx, e.db, key, txnID)
	if err != nil {
		e.release(ctx, log, claim)
		return res, err
	}
	if txn == nil {
		e.release(ctx, log, claim)
		return res, paymentdomain.ErrTransactionNotFound
	}

	step, runErr := e.advance(ctx, log, claim, *txn, &res)
	res.Step = step
	if runErr != nil {
		res.Outcome = OutcomeFailed
		res.Error = runErr.Error()
		e.metrics.RecordLifecycleStep(string(nextStep(step)), "failed")
		log.Error("lifecycle.step.failed",
			zap.String("step", string(step)),
			zap.String("failed_step", string(nextStep(step))),
			zap.Error(runErr),
		)
		if err := e.payments.RecordFailure(ctx, e.db, claim, runErr.Error()); err != nil {
			log.Error("lifecycle.failure.record_failed", zap.Error(err))
		}
		return res, nil
	}

	e.release(ctx, log, claim)
	res.Outcome = OutcomeCompleted
	log.Info("lifecycle.completed", zap.String("invoice_no", res.InvoiceNo))
	return res, nil
}

// Redrive clears a recorded failure and resumes the saga. Completed
// transactions are left untouched.
func (e *Engine) Redrive(ctx context.Context, key tenant.Key, txnID string) (Result, error) {
	if err := key.Validate(); err != nil {
		return Result{}, err
	}
	txnID = strings.TrimSpace(txnID)
	if txnID == "" {
		return Result{}, paymentdomain.ErrInvalidTxnID
	}

	txn, err := e.payments.FindByID(ctx, e.db, key, txnID)
	if err != nil {
		return Result{}, err
	}
	if txn == nil {
		return Result{}, paymentdomain.ErrTransactionNotFound
	}
	if txn.Status != paymentdomain.StatusSuccess {
		return Result{}, ErrNotRedrivable
	}
	if !txn.Stuck() {
		return Result{TxnID: txnID, Outcome: OutcomeSkipped, Step: txn.LifecycleStep, InvoiceNo: txn.InvoiceNo}, nil
	}

	cleared, err := e.payments.ClearFailure(ctx, e.db, key, txnID)
	if err != nil {
		return Result{}, err
	}
	ctxlogger.WithContext(ctx, e.log).Info("lifecycle.redrive",
		zap.String("txn_id", txnID),
		zap.String("step", string(txn.LifecycleStep)),
		zap.Bool("cleared_failure", cleared),
	)

	res, err := e.Run(ctx, key, txnID)
	if err != nil {
		return res, err
	}
	switch res.Outcome {
	case OutcomeSkipped:
		return res, ErrBusy
	case OutcomeFailed:
		return res, fmt.Errorf("%w: %s", ErrRunFailed, res.Error)
	}
	return res, nil
}

// advance commits every step not yet reached and returns the last step
// committed.
func (e *Engine) advance(ctx context.Context, log *zap.Logger, claim paymentdomain.Claim, txn paymentdomain.Transaction, res *Result) (paymentdomain.Step, error) {
	step := txn.LifecycleStep
	policy := e.policy.Get()
	res.InvoiceNo = txn.InvoiceNo

	uid := strings.TrimSpace(txn.UID)
	if uid == "" {
		return step, ErrMissingUID
	}

	payer, err := e.profiles.Resolve(ctx, claim.Key, uid)
	if err != nil {
		return step, fmt.Errorf("resolve recipient: %w", err)
	}

	amounts, err := invoicedomain.SplitTax(txn.Amount, policy.TaxRateDecimal())
	if err != nil {
		return step, err
	}

	// A resumed run keeps the window anchored at the first issue time.
	issuedAt := e.clock.Now()
	if txn.InvoiceIssuedAt != nil {
		issuedAt = *txn.InvoiceIssuedAt
	}
	cycle := subscriptiondomain.CycleFromFlags(txn.IsYearly, txn.IsSixMonths)
	periodStart, periodEnd := subscriptiondomain.Period(issuedAt, cycle, policy)

	if !step.Reached(paymentdomain.StepInvoiceNumbered) {
		number, err := format.FormatNumber(policy.InvoiceNumberTemplate, issuedAt.In(policy.Location()), txn.TxnID)
		if err != nil {
			return step, err
		}
		err = e.payments.AdvanceStep(ctx, e.db, claim, paymentdomain.StepInvoiceNumbered, map[string]any{
			"invoice_no":        number,
			"invoice_issued_at": issuedAt,
		})
		if err != nil {
			return step, err
		}
		txn.InvoiceNo = number
		res.InvoiceNo = number
		step = e.stepDone(log, paymentdomain.StepInvoiceNumbered)
	}

	receipt := invoicedomain.Receipt{
		Number:        txn.InvoiceNo,
		IssuedAt:      issuedAt,
		TxnID:         txn.TxnID,
		MerchantTxnNo: txn.MerchantTxnNo,
		PaymentMethod: txn.PaymentMethod,
		PlanName:      txn.PlanName,
		CycleLabel:    cycle.Label(),
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		PayerName:     payer.Name,
		PayerEmail:    payer.Email,
		Currency:      policy.Currency,
		Amounts:       amounts,
	}

	if !step.Reached(paymentdomain.StepReceiptEnqueued) {
		msg, err := e.receiptMessage(ctx, policy, receipt)
		if err != nil {
			return step, err
		}
		err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := e.mail.EnqueueTx(ctx, tx, claim.Key, msg); err != nil {
				return fmt.Errorf("enqueue receipt: %w", err)
			}
			return e.payments.AdvanceStep(ctx, tx, claim, paymentdomain.StepReceiptEnqueued, nil)
		})
		if err != nil {
			return step, err
		}
		step = e.stepDone(log, paymentdomain.StepReceiptEnqueued)
	}

	if !step.Reached(paymentdomain.StepStamped) {
		err := e.payments.AdvanceStep(ctx, e.db, claim, paymentdomain.StepStamped, map[string]any{
			"receipt_sent_at": e.clock.Now(),
		})
		if err != nil {
			return step, err
		}
		step = e.stepDone(log, paymentdomain.StepStamped)
	}

	if !step.Reached(paymentdomain.StepCompleted) {
		err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, err := e.subscriptions.RenewTx(ctx, tx, claim.Key, subscriptiondomain.RenewRequest{
				UID:         uid,
				TxnID:       txn.TxnID,
				PlanName:    txn.PlanName,
				IsYearly:    txn.IsYearly,
				IsSixMonths: txn.IsSixMonths,
				Price:       txn.Amount,
				Email:       payer.Email,
				StartedAt:   periodStart,
			})
			if err != nil {
				return err
			}
			return e.payments.AdvanceStep(ctx, tx, claim, paymentdomain.StepCompleted, nil)
		})
		if err != nil {
			return step, err
		}
		step = e.stepDone(log, paymentdomain.StepCompleted)
	}

	return step, nil
}

func (e *Engine) receiptMessage(ctx context.Context, policy config.Policy, receipt invoicedomain.Receipt) (maildomain.Message, error) {
	body, err := e.renderer.ReceiptEmail(policy, receipt)
	if err != nil {
		return maildomain.Message{}, fmt.Errorf("render receipt email: %w", err)
	}
	document, err := e.pdf.RenderReceipt(ctx, render.ReceiptDocument(policy, receipt))
	if err != nil {
		return maildomain.Message{}, fmt.Errorf("render receipt pdf: %w", err)
	}
	return maildomain.Message{
		To:      receipt.PayerEmail,
		Subject: body.Subject,
		HTML:    body.HTML,
		Attachments: []email.Attachment{{
			Filename:    render.ReceiptFilename(receipt.Number),
			Content:     base64.StdEncoding.EncodeToString(document),
			ContentType: "application/pdf",
		}},
	}, nil
}

func (e *Engine) stepDone(log *zap.Logger, step paymentdomain.Step) paymentdomain.Step {
	e.metrics.RecordLifecycleStep(string(step), "ok")
	log.Debug("lifecycle.step.completed", zap.String("step", string(step)))
	return step
}

func (e *Engine) release(ctx context.Context, log *zap.Logger, claim paymentdomain.Claim) {
	if err := e.payments.Release(ctx, e.db, claim); err != nil {
		log.Warn("lifecycle.claim.release_failed", zap.Error(err))
	}
}

func nextStep(step paymentdomain.Step) paymentdomain.Step {
	switch step {
	case paymentdomain.StepNone:
		return paymentdomain.StepInvoiceNumbered
	case paymentdomain.StepInvoiceNumbered:
		return paymentdomain.StepReceiptEnqueued
	case paymentdomain.StepReceiptEnqueued:
		return paymentdomain.StepStamped
	default:
		return paymentdomain.StepCompleted
	}
}
