// Package workflow contains the decision pipeline: the state machine that
// takes an uploaded invoice through validation, oracle assessment, response
// normalization, threat correlation, persistence, ledger mutation and
// side-effect dispatch. Each step's writes are final once performed; a later
// failure never rolls back an earlier step.
package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shieldnetlabs/shieldnet_backend/analyzer"
	"github.com/shieldnetlabs/shieldnet_backend/config"
	"github.com/shieldnetlabs/shieldnet_backend/models"
	"github.com/shieldnetlabs/shieldnet_backend/storage"
	"github.com/shieldnetlabs/shieldnet_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("shieldnet-backend")

// MaxUploadBytes is the document size ceiling (10 MiB).
const MaxUploadBytes int64 = 10 * 1024 * 1024

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ValidateUpload accepts only allow-listed document types under the size
// ceiling. It runs before any oracle call; rejected uploads never cost an
// external invocation.
func ValidateUpload(fileName string, size int64) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtensions[ext] {
		return utils.NewAppErrorf(utils.ErrKindInvalidInput, "invalid file type %q; allowed: PDF, PNG, JPG, JPEG", ext)
	}
	if size > MaxUploadBytes {
		return utils.NewAppErrorf(utils.ErrKindPayloadTooLarge, "file size exceeds 10MB limit")
	}
	return nil
}

// PaymentSender dispatches an external payment for an approved invoice.
type PaymentSender interface {
	Pay(ctx context.Context, amount decimal.Decimal, invoiceId, vendor string) (success bool, message string, err error)
}

// ThreatPublishFunc pushes a blocked-invoice report to the sharing feed.
type ThreatPublishFunc func(ctx context.Context, msg config.ThreatFeedMessage) (string, error)

// DecisionPipeline orchestrates one analysis per request. The stores it is
// constructed with are process-wide singletons; the pipeline is safe for
// concurrent use.
type DecisionPipeline struct {
	oracle           analyzer.Oracle
	store            *storage.ResultStore
	registry         *storage.ThreatRegistry
	ledger           *storage.LedgerAccount
	artifacts        *storage.ArtifactStore
	payments         PaymentSender     // nil disables payment dispatch
	publishThreat    ThreatPublishFunc // nil disables the sharing feed
	strictValidation bool
	logger           *logrus.Logger
}

type PipelineOptions struct {
	Oracle           analyzer.Oracle
	Store            *storage.ResultStore
	Registry         *storage.ThreatRegistry
	Ledger           *storage.LedgerAccount
	Artifacts        *storage.ArtifactStore
	Payments         PaymentSender
	PublishThreat    ThreatPublishFunc
	StrictValidation bool
	Logger           *logrus.Logger
}

func NewDecisionPipeline(opts PipelineOptions) *DecisionPipeline {
	return &DecisionPipeline{
		oracle:           opts.Oracle,
		store:            opts.Store,
		registry:         opts.Registry,
		ledger:           opts.Ledger,
		artifacts:        opts.Artifacts,
		payments:         opts.Payments,
		publishThreat:    opts.PublishThreat,
		strictValidation: opts.StrictValidation,
		logger:           opts.Logger,
	}
}

// Analyze runs the full pipeline atomically: validate, assess, normalize,
// correlate, persist, mutate the ledger and dispatch side effects.
func (p *DecisionPipeline) Analyze(ctx context.Context, fileName string, data []byte) (*Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.analyze")
	defer span.End()

	if err := ValidateUpload(fileName, int64(len(data))); err != nil {
		return nil, err
	}

	mediaType := analyzer.MediaTypeFor(fileName)
	key, err := p.artifacts.Save(ctx, fileName, data, mediaType)
	if err != nil {
		return nil, utils.NewAppErrorf(utils.ErrKindPersistenceFailure, "store upload: %w", err)
	}

	raw, err := p.oracle.Assess(ctx, analyzer.Document{Data: data, MediaType: mediaType})
	if err != nil {
		p.discardArtifact(ctx, key)
		return nil, err
	}

	assessment, err := p.normalize(raw)
	if err != nil {
		p.discardArtifact(ctx, key)
		return nil, err
	}

	return p.finalize(ctx, assessment)
}

// AnalyzeStream runs the pipeline with progressive events. Validation
// failures surface as an immediate error before any event is produced; all
// later failures arrive as a terminal error event. The returned channel is
// single-consumer and closes after the terminal event. Cancelling ctx
// abandons the oracle stream and discards the upload without committing
// anything.
func (p *DecisionPipeline) AnalyzeStream(ctx context.Context, fileName string, data []byte) (<-chan ProgressEvent, error) {
	if err := ValidateUpload(fileName, int64(len(data))); err != nil {
		return nil, err
	}

	// Unbuffered: each event is handed to the caller before the next
	// pipeline step proceeds, so fragments are observed progressively.
	events := make(chan ProgressEvent)
	go p.runStream(ctx, fileName, data, events)
	return events, nil
}

func (p *DecisionPipeline) runStream(ctx context.Context, fileName string, data []byte, events chan<- ProgressEvent) {
	defer close(events)

	ctx, span := tracer.Start(ctx, "pipeline.analyzeStream")
	defer span.End()

	emit := func(ev ProgressEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(key string, err error) {
		p.discardArtifact(ctx, key)
		if ctx.Err() != nil {
			// Caller is gone; nobody is reading the channel.
			return
		}
		emit(ProgressEvent{Type: ProgressEventError, Message: err.Error()})
	}

	mediaType := analyzer.MediaTypeFor(fileName)
	key, err := p.artifacts.Save(ctx, fileName, data, mediaType)
	if err != nil {
		fail("", utils.NewAppErrorf(utils.ErrKindPersistenceFailure, "store upload: %w", err))
		return
	}

	if !emit(progressEvent(stepUploaded)) || !emit(progressEvent(stepSent)) || !emit(progressEvent(stepAnalyzing)) {
		p.discardArtifact(ctx, key)
		return
	}

	raw, err := p.oracle.AssessStream(ctx, analyzer.Document{Data: data, MediaType: mediaType}, func(text string) {
		emit(ProgressEvent{Type: ProgressEventStream, Text: text})
	})
	if err != nil {
		fail(key, err)
		return
	}

	if !emit(progressEvent(stepParsing)) {
		p.discardArtifact(ctx, key)
		return
	}

	assessment, err := p.normalize(raw)
	if err != nil {
		fail(key, err)
		return
	}

	if !emit(progressEvent(stepCorrelating)) {
		p.discardArtifact(ctx, key)
		return
	}

	result, err := p.finalize(ctx, assessment)
	if err != nil {
		fail(key, err)
		return
	}
	emit(ProgressEvent{Type: ProgressEventComplete, Result: result})
}

// normalize repairs the raw oracle text and, in strict mode, cross-checks
// the returned decision against the local policy.
func (p *DecisionPipeline) normalize(raw string) (*models.InvoiceAssessment, error) {
	assessment, err := analyzer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if p.strictValidation {
		if derived := analyzer.Classify(assessment.FraudScore, assessment.LocalChecks); derived != assessment.Status {
			return nil, utils.NewAppErrorf(utils.ErrKindMalformedAssessment,
				"oracle decision %q disagrees with policy decision %q for score %d",
				assessment.Status, derived, assessment.FraudScore)
		}
	}
	return assessment, nil
}

// finalize commits the assessment: threat correlation, persistence, ledger
// mutation and side-effect dispatch. Side effects are fire-and-forget:
// their failures are collected as warnings, never escalated, because the
// primary decision already stands.
func (p *DecisionPipeline) finalize(ctx context.Context, assessment *models.InvoiceAssessment) (*Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.finalize")
	defer span.End()

	if parent := trace.SpanFromContext(ctx); parent.IsRecording() {
		parent.AddEvent("decision " + string(assessment.Status))
	}

	assessment.NetworkSignals = p.registry.Correlate(assessment.Vendor, assessment.FraudScore)

	if err := p.store.SaveInvoice(assessment); err != nil {
		return nil, err
	}

	now := time.Now()
	txn := &models.Transaction{
		Id:        "TXN-" + now.Format("20060102150405"),
		Status:    models.TransactionStatusForDecision(assessment.Status),
		Vendor:    assessment.Vendor,
		Amount:    assessment.Amount,
		Currency:  assessment.Currency,
		Date:      now.Format("2006-01-02"),
		Reason:    assessment.Explanation,
		InvoiceId: assessment.InvoiceId,
	}
	if err := p.store.SaveTransaction(txn); err != nil {
		return nil, err
	}

	switch assessment.Status {
	case models.InvoiceStatusApproved:
		if err := p.ledger.Settle(assessment.Amount); err != nil {
			return nil, err
		}
	case models.InvoiceStatusBlocked:
		if err := p.ledger.FlagBlocked(assessment.Amount); err != nil {
			return nil, err
		}
	}

	result := &Result{InvoiceAssessment: assessment}
	result.Warnings = p.dispatchSideEffects(ctx, assessment)
	return result, nil
}

// dispatchSideEffects fans out on the terminal decision: payment for
// approved invoices, threat auto-report for blocked ones.
func (p *DecisionPipeline) dispatchSideEffects(ctx context.Context, assessment *models.InvoiceAssessment) []string {
	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, msg)
		p.logger.WithFields(logrus.Fields{
			"module":    "workflow",
			"invoiceId": assessment.InvoiceId,
			"vendor":    assessment.Vendor,
		}).Warn(msg)
	}

	switch assessment.Status {
	case models.InvoiceStatusApproved:
		if p.payments == nil {
			p.logger.WithFields(logrus.Fields{
				"module":    "workflow",
				"invoiceId": assessment.InvoiceId,
			}).Info("payment dispatch not configured; skipping")
			return warnings
		}
		success, message, err := p.payments.Pay(ctx, assessment.Amount, assessment.InvoiceId, assessment.Vendor)
		if err != nil {
			warn("payment dispatch failed: %s", err.Error())
		} else if !success {
			warn("payment dispatch rejected: %s", message)
		}

	case models.InvoiceStatusBlocked:
		record, err := p.registry.Report(assessment.Vendor, assessment.FraudScore, assessment.Explanation, assessment.Amount)
		if err != nil {
			warn("threat auto-report failed: %s", err.Error())
			return warnings
		}
		p.shareThreat(ctx, record)
	}
	return warnings
}

// shareThreat pushes a report to the sharing feed when configured.
// Publishing is best-effort; a failure is logged and swallowed without even
// a warning, since the local report already succeeded.
func (p *DecisionPipeline) shareThreat(ctx context.Context, record *models.ThreatRecord) {
	if p.publishThreat == nil {
		return
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	_, err := p.publishThreat(ctx, config.ThreatFeedMessage{
		ThreatId:      record.Id,
		Vendor:        record.Vendor,
		FraudScore:    record.FraudScore,
		Reason:        record.Reason,
		AmountBlocked: record.AmountBlocked.String(),
		ReportedAt:    time.Now().UTC(),
		CorrelationId: correlationId,
	})
	if err != nil {
		config.LogError(p.logger, "workflow", "shareThreat", "PublishThreatReport", record.Id, err)
	}
}

// ReportThreat records a manual threat report and mirrors it to the sharing
// feed. Used by the threats endpoint; the auto-report path on blocked
// invoices goes through dispatchSideEffects.
func (p *DecisionPipeline) ReportThreat(ctx context.Context, input *models.NewThreatReport) (*models.ThreatRecord, error) {
	record, err := p.registry.Report(input.Vendor, input.FraudScore, input.Reason, input.Amount)
	if err != nil {
		return nil, err
	}
	p.shareThreat(ctx, record)
	return record, nil
}

func (p *DecisionPipeline) discardArtifact(ctx context.Context, key string) {
	if key == "" {
		return
	}
	// Use a fresh context: the request may already be cancelled.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.artifacts.Delete(cleanupCtx, key); err != nil {
		p.logger.WithFields(logrus.Fields{
			"module": "workflow",
			"key":    key,
		}).Warn("failed to remove uploaded artifact: " + err.Error())
	}
}
