package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/shieldnetlabs/shieldnet_backend/analyzer"
	"github.com/shieldnetlabs/shieldnet_backend/config"
	"github.com/shieldnetlabs/shieldnet_backend/models"
	"github.com/shieldnetlabs/shieldnet_backend/storage"
	"github.com/shieldnetlabs/shieldnet_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fakeOracle struct {
	response string
	err      error
	calls    int
	block    bool
}

func (o *fakeOracle) Assess(ctx context.Context, doc analyzer.Document) (string, error) {
	o.calls++
	if o.err != nil {
		return "", o.err
	}
	return o.response, nil
}

func (o *fakeOracle) AssessStream(ctx context.Context, doc analyzer.Document, onFragment func(text string)) (string, error) {
	o.calls++
	if o.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if o.err != nil {
		return "", o.err
	}
	half := len(o.response) / 2
	onFragment(o.response[:half])
	onFragment(o.response[half:])
	return o.response, nil
}

type fakePayments struct {
	calls   int
	success bool
	message string
	err     error
}

func (p *fakePayments) Pay(ctx context.Context, amount decimal.Decimal, invoiceId, vendor string) (bool, string, error) {
	p.calls++
	return p.success, p.message, p.err
}

func oracleResponse(status string, score int, vendor string, amount string) string {
	return fmt.Sprintf("```json\n"+`{
		"invoiceId": "INV-9001",
		"vendor": %q,
		"amount": %s,
		"fraudScore": %d,
		"confidence": 90,
		"status": %q,
		"explanation": "assessment explanation",
		"localChecks": [{"name": "PO match", "status": "pass", "detail": "ok"}]
	}`+"\n```", vendor, amount, score, status)
}

type testEnv struct {
	pipeline *DecisionPipeline
	oracle   *fakeOracle
	store    *storage.ResultStore
	registry *storage.ThreatRegistry
	ledger   *storage.LedgerAccount
	payments *fakePayments
	feed     []config.ThreatFeedMessage
}

func newTestEnv(t *testing.T, oracle *fakeOracle, strict bool) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		oracle:   oracle,
		store:    storage.NewResultStore(),
		registry: storage.NewThreatRegistry(false),
		ledger:   storage.NewLedgerAccount(decimal.NewFromInt(10000)),
		payments: &fakePayments{success: true, message: "dispatched"},
	}
	env.pipeline = NewDecisionPipeline(PipelineOptions{
		Oracle:    oracle,
		Store:     env.store,
		Registry:  env.registry,
		Ledger:    env.ledger,
		Artifacts: storage.NewArtifactStore(t.TempDir(), logger),
		Payments:  env.payments,
		PublishThreat: func(ctx context.Context, msg config.ThreatFeedMessage) (string, error) {
			env.feed = append(env.feed, msg)
			return "msg-1", nil
		},
		StrictValidation: strict,
		Logger:           logger,
	})
	return env
}

func TestAnalyze_ApprovedSettlesAndPays(t *testing.T) {
	oracle := &fakeOracle{response: oracleResponse("approved", 10, "Honest Vendor Inc", "4800.50")}
	env := newTestEnv(t, oracle, false)

	result, err := env.pipeline.Analyze(context.Background(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if result.Status != models.InvoiceStatusApproved {
		t.Fatalf("expected approved, got %s", result.Status)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}
	if len(result.NetworkSignals) != 1 || result.NetworkSignals[0].Type != models.SignalTypeClean {
		t.Fatalf("expected one clean signal, got %#v", result.NetworkSignals)
	}

	if env.payments.calls != 1 {
		t.Fatalf("expected 1 payment dispatch, got %d", env.payments.calls)
	}
	if got := env.ledger.Snapshot(); got.Balance.String() != "5199.5" || got.AutoPaidThisMonth.String() != "4800.5" {
		t.Fatalf("unexpected ledger state: balance %s, autoPaid %s", got.Balance.String(), got.AutoPaidThisMonth.String())
	}

	invoices := env.store.Invoices()
	if len(invoices) != 1 || invoices[0].InvoiceId != "INV-9001" {
		t.Fatalf("expected saved invoice INV-9001, got %#v", invoices)
	}
	txns := env.store.Transactions(models.TransactionFilter{})
	if len(txns) != 1 || txns[0].Status != models.TransactionStatusPaid {
		t.Fatalf("expected one paid transaction, got %#v", txns)
	}
	if txns[0].InvoiceId != "INV-9001" || txns[0].Currency != models.CurrencyUSDC {
		t.Fatalf("unexpected transaction linkage: %#v", txns[0])
	}
}

func TestAnalyze_PaymentFailureIsWarningNotError(t *testing.T) {
	oracle := &fakeOracle{response: oracleResponse("approved", 10, "Honest Vendor Inc", "100")}
	env := newTestEnv(t, oracle, false)
	env.payments.success = false
	env.payments.err = errors.New("gateway unreachable")

	result, err := env.pipeline.Analyze(context.Background(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", result.Warnings)
	}
	// The decision and ledger mutation stand regardless.
	if got := env.ledger.Snapshot(); got.AutoPaidThisMonth.String() != "100" {
		t.Fatalf("expected ledger settled, got autoPaid %s", got.AutoPaidThisMonth.String())
	}
}

func TestAnalyze_BlockedReportsThreatAndFlagsLedger(t *testing.T) {
	oracle := &fakeOracle{response: oracleResponse("blocked", 95, "Quantum Consulting Group", "12000")}
	env := newTestEnv(t, oracle, false)

	result, err := env.pipeline.Analyze(context.Background(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if result.Status != models.InvoiceStatusBlocked {
		t.Fatalf("expected blocked, got %s", result.Status)
	}
	if env.payments.calls != 0 {
		t.Fatalf("expected no payment dispatch for blocked invoice, got %d", env.payments.calls)
	}

	records := env.registry.All()
	if len(records) != 1 {
		t.Fatalf("expected 1 auto-reported threat, got %d", len(records))
	}
	if records[0].Vendor != "Quantum Consulting Group" || records[0].TimesSeen != 1 {
		t.Fatalf("unexpected threat record: %#v", records[0])
	}
	if len(env.feed) != 1 || env.feed[0].Vendor != "Quantum Consulting Group" {
		t.Fatalf("expected threat shared to feed, got %#v", env.feed)
	}

	snap := env.ledger.Snapshot()
	if snap.Balance.String() != "10000" {
		t.Fatalf("expected balance untouched, got %s", snap.Balance.String())
	}
	if snap.BlockedThisMonth.String() != "12000" {
		t.Fatalf("expected blockedThisMonth 12000, got %s", snap.BlockedThisMonth.String())
	}

	txns := env.store.Transactions(models.TransactionFilter{})
	if len(txns) != 1 || txns[0].Status != models.TransactionStatusBlocked {
		t.Fatalf("expected one blocked transaction, got %#v", txns)
	}
}

func TestAnalyze_HoldTouchesNothing(t *testing.T) {
	oracle := &fakeOracle{response: oracleResponse("hold", 50, "Ambiguous Vendor", "500")}
	env := newTestEnv(t, oracle, false)

	result, err := env.pipeline.Analyze(context.Background(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if result.Status != models.InvoiceStatusHold {
		t.Fatalf("expected hold, got %s", result.Status)
	}
	// Mid-band score with no registry hit: no signals at all.
	if len(result.NetworkSignals) != 0 {
		t.Fatalf("expected no network signals, got %#v", result.NetworkSignals)
	}
	if env.payments.calls != 0 || env.registry.Count() != 0 {
		t.Fatalf("expected no side effects, got %d payments, %d reports", env.payments.calls, env.registry.Count())
	}
	snap := env.ledger.Snapshot()
	if snap.Balance.String() != "10000" || !snap.AutoPaidThisMonth.IsZero() || !snap.BlockedThisMonth.IsZero() {
		t.Fatalf("expected ledger untouched, got %#v", snap)
	}
	txns := env.store.Transactions(models.TransactionFilter{})
	if len(txns) != 1 || txns[0].Status != models.TransactionStatusHeld {
		t.Fatalf("expected one held transaction, got %#v", txns)
	}
}

func TestAnalyze_CorrelationHitAddsFlaggedSignals(t *testing.T) {
	oracle := &fakeOracle{response: oracleResponse("hold", 50, "Quantum Consulting Group", "500")}
	env := newTestEnv(t, oracle, false)
	if _, err := env.registry.Report("quantum consulting group", 95, "known mill", decimal.NewFromInt(12000)); err != nil {
		t.Fatalf("seed Report error: %v", err)
	}

	result, err := env.pipeline.Analyze(context.Background(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if len(result.NetworkSignals) != 2 {
		t.Fatalf("expected 2 flagged signals, got %#v", result.NetworkSignals)
	}
	if env.registry.All()[0].TimesSeen != 2 {
		t.Fatalf("expected timesSeen incremented to 2, got %d", env.registry.All()[0].TimesSeen)
	}
}

func TestAnalyze_RejectsBadUploadsBeforeOracle(t *testing.T) {
	oracle := &fakeOracle{response: oracleResponse("approved", 10, "Vendor", "1")}
	env := newTestEnv(t, oracle, false)

	_, err := env.pipeline.Analyze(context.Background(), "invoice.docx", []byte("data"))
	if kind := utils.KindOf(err); kind != utils.ErrKindInvalidInput {
		t.Fatalf("expected InvalidInput, got %q (%v)", kind, err)
	}

	big := make([]byte, MaxUploadBytes+1)
	_, err = env.pipeline.Analyze(context.Background(), "invoice.pdf", big)
	if kind := utils.KindOf(err); kind != utils.ErrKindPayloadTooLarge {
		t.Fatalf("expected PayloadTooLarge, got %q (%v)", kind, err)
	}

	if oracle.calls != 0 {
		t.Fatalf("expected zero oracle invocations, got %d", oracle.calls)
	}
	if len(env.store.Invoices()) != 0 {
		t.Fatal("expected nothing persisted")
	}
}

func TestAnalyze_MalformedOracleOutputCommitsNothing(t *testing.T) {
	oracle := &fakeOracle{response: "I could not assess this document."}
	env := newTestEnv(t, oracle, false)

	_, err := env.pipeline.Analyze(context.Background(), "invoice.pdf", []byte("%PDF-1.4"))
	if kind := utils.KindOf(err); kind != utils.ErrKindMalformedAssessment {
		t.Fatalf("expected MalformedAssessment, got %q (%v)", kind, err)
	}
	if len(env.store.Invoices()) != 0 || len(env.store.Transactions(models.TransactionFilter{})) != 0 {
		t.Fatal("expected nothing persisted after malformed response")
	}
}

func TestAnalyze_StrictValidationRejectsDisagreement(t *testing.T) {
	// Score 95 derives blocked; the oracle claims approved.
	oracle := &fakeOracle{response: oracleResponse("approved", 95, "Vendor", "100")}
	env := newTestEnv(t, oracle, true)

	_, err := env.pipeline.Analyze(context.Background(), "invoice.pdf", []byte("%PDF-1.4"))
	if kind := utils.KindOf(err); kind != utils.ErrKindMalformedAssessment {
		t.Fatalf("expected MalformedAssessment, got %q (%v)", kind, err)
	}
}

func TestAnalyzeStream_EventSequence(t *testing.T) {
	oracle := &fakeOracle{response: oracleResponse("approved", 10, "Honest Vendor Inc", "100")}
	env := newTestEnv(t, oracle, false)

	events, err := env.pipeline.AnalyzeStream(context.Background(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("AnalyzeStream error: %v", err)
	}

	var collected []ProgressEvent
	for ev := range events {
		collected = append(collected, ev)
	}

	var steps []int
	var fragments int
	var complete *ProgressEvent
	for i := range collected {
		switch collected[i].Type {
		case ProgressEventProgress:
			steps = append(steps, collected[i].Step)
		case ProgressEventStream:
			fragments++
		case ProgressEventComplete:
			complete = &collected[i]
		case ProgressEventError:
			t.Fatalf("unexpected error event: %s", collected[i].Message)
		}
	}

	expectedSteps := []int{1, 2, 3, 4, 5}
	if len(steps) != len(expectedSteps) {
		t.Fatalf("expected steps %v, got %v", expectedSteps, steps)
	}
	for i, s := range expectedSteps {
		if steps[i] != s {
			t.Fatalf("expected steps %v, got %v", expectedSteps, steps)
		}
	}
	if fragments != 2 {
		t.Fatalf("expected 2 stream fragments, got %d", fragments)
	}
	if complete == nil || complete.Result == nil {
		t.Fatal("expected a terminal complete event with a result")
	}
	if complete.Result.Status != models.InvoiceStatusApproved {
		t.Fatalf("expected approved result, got %s", complete.Result.Status)
	}
	if len(env.store.Invoices()) != 1 {
		t.Fatal("expected the streamed analysis to persist its invoice")
	}
}

func TestAnalyzeStream_ErrorEventOnMalformedResponse(t *testing.T) {
	oracle := &fakeOracle{response: "not json at all"}
	env := newTestEnv(t, oracle, false)

	events, err := env.pipeline.AnalyzeStream(context.Background(), "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("AnalyzeStream error: %v", err)
	}

	var last ProgressEvent
	for ev := range events {
		last = ev
	}
	if last.Type != ProgressEventError {
		t.Fatalf("expected terminal error event, got %s", last.Type)
	}
	if len(env.store.Invoices()) != 0 {
		t.Fatal("expected nothing persisted")
	}
}

func TestAnalyzeStream_CancellationCommitsNothing(t *testing.T) {
	oracle := &fakeOracle{block: true}
	env := newTestEnv(t, oracle, false)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := env.pipeline.AnalyzeStream(ctx, "invoice.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("AnalyzeStream error: %v", err)
	}

	// Read the first progress event, then walk away.
	first := <-events
	if first.Type != ProgressEventProgress || first.Step != 1 {
		t.Fatalf("expected step 1 progress, got %#v", first)
	}
	cancel()

	for range events {
	}

	if len(env.store.Invoices()) != 0 || len(env.store.Transactions(models.TransactionFilter{})) != 0 {
		t.Fatal("expected nothing persisted after cancellation")
	}
	if env.registry.Count() != 0 {
		t.Fatal("expected no threat reports after cancellation")
	}
	if snap := env.ledger.Snapshot(); snap.Balance.String() != "10000" {
		t.Fatalf("expected ledger untouched, got %s", snap.Balance.String())
	}
}

func TestAnalyzeStream_RejectsBadUploadBeforeStreaming(t *testing.T) {
	oracle := &fakeOracle{}
	env := newTestEnv(t, oracle, false)

	_, err := env.pipeline.AnalyzeStream(context.Background(), "invoice.exe", []byte("data"))
	if kind := utils.KindOf(err); kind != utils.ErrKindInvalidInput {
		t.Fatalf("expected InvalidInput, got %q (%v)", kind, err)
	}
	if oracle.calls != 0 {
		t.Fatalf("expected zero oracle invocations, got %d", oracle.calls)
	}
}

func TestReportThreat_SharesToFeed(t *testing.T) {
	env := newTestEnv(t, &fakeOracle{}, false)

	record, err := env.pipeline.ReportThreat(context.Background(), &models.NewThreatReport{
		InvoiceId:  "INV-1",
		Vendor:     "Shady Corp",
		FraudScore: 88,
		Reason:     "invoice mill",
		Amount:     decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("ReportThreat error: %v", err)
	}
	if record.Vendor != "Shady Corp" || record.TimesSeen != 1 {
		t.Fatalf("unexpected record: %#v", record)
	}
	if len(env.feed) != 1 || env.feed[0].ThreatId != record.Id {
		t.Fatalf("expected feed publish for %s, got %#v", record.Id, env.feed)
	}
}

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		file string
		size int64
		kind utils.ErrorKind
	}{
		{"a.pdf", 100, ""},
		{"a.PNG", 100, ""},
		{"a.jpg", MaxUploadBytes, ""},
		{"a.jpeg", 100, ""},
		{"a.gif", 100, utils.ErrKindInvalidInput},
		{"a", 100, utils.ErrKindInvalidInput},
		{"a.pdf", MaxUploadBytes + 1, utils.ErrKindPayloadTooLarge},
	}
	for _, tc := range cases {
		err := ValidateUpload(tc.file, tc.size)
		if tc.kind == "" {
			if err != nil {
				t.Fatalf("ValidateUpload(%q, %d) unexpected error: %v", tc.file, tc.size, err)
			}
			continue
		}
		if kind := utils.KindOf(err); kind != tc.kind {
			t.Fatalf("ValidateUpload(%q, %d) expected %s, got %q (%v)", tc.file, tc.size, tc.kind, kind, err)
		}
	}
}
