package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/config"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/mq"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/provision"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/repo"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/report"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/telemetry"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// fakeAudit — AuditStore в памяти.
type fakeAudit struct {
	records []*repo.AuditRecord
}

func (f *fakeAudit) Record(_ context.Context, rec *repo.AuditRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeAudit) ListRecent(_ context.Context, limit int) ([]repo.AuditRecord, error) {
	var out []repo.AuditRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.records[i])
	}
	return out, nil
}

type testEnv struct {
	deps     *Deps
	broker   *mq.MockBroker
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	connects int

	// dropAfter применяется к брокеру после каждого подключения.
	dropAfter int
}

func newTestEnv(jsonMode bool, probe mq.ProbeFunc) *testEnv {
	env := &testEnv{
		broker: mq.NewMockBroker(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	if probe == nil {
		probe = func(context.Context) error { return nil }
	}

	logger := slog.New(slog.DiscardHandler)
	reg := prometheus.NewRegistry()

	env.deps = &Deps{
		Config:     config.Default(),
		Definition: topology.Default(),
		Logger:     logger,
		Output:     report.NewOutput(env.stdout, env.stderr, jsonMode),
		Waiter:     mq.NewWaiter(probe, mq.FixedBackoff(3, 0), logger),
		Connect: func(context.Context) (mq.Broker, error) {
			env.connects++
			env.broker.Reopen()
			env.broker.DropAfter = env.dropAfter
			return env.broker, nil
		},
		Registry: reg,
		Metrics:  telemetry.NewMetrics(reg),
	}
	env.deps.Config.Audit.DBURL = ""
	return env
}

func (e *testEnv) depsFn() (*Deps, error) {
	return e.deps, nil
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}

// --- Setup Tests ---

func TestSetup_FreshBroker(t *testing.T) {
	env := newTestEnv(false, nil)

	if err := execute(t, NewSetupCmd(env.depsFn)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.connects != 1 {
		t.Errorf("expected 1 connection, got %d", env.connects)
	}
	for _, name := range env.deps.Definition.QueueNames() {
		if _, ok := env.broker.Queues[name]; !ok {
			t.Errorf("queue %s not declared", name)
		}
	}
	if !env.broker.Closed {
		t.Error("broker connection not closed")
	}

	out := env.stdout.String()
	if !strings.Contains(out, "Priority Queue Topology") {
		t.Errorf("summary header missing:\n%s", out)
	}
	if !strings.Contains(out, "Provisioned: 17 ok, 0 failed, 0 skipped") {
		t.Errorf("unexpected totals:\n%s", out)
	}
	if !strings.Contains(env.stderr.String(), "Topology setup complete") {
		t.Errorf("unexpected stderr: %q", env.stderr.String())
	}
}

func TestSetup_ResourceFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(false, nil)
	env.broker.QueueErrs[topology.QueueBatch] = mq.ErrConflict

	if err := execute(t, NewSetupCmd(env.depsFn)); err != nil {
		t.Fatalf("resource failure must not fail the run: %v", err)
	}
	if !strings.Contains(env.stderr.String(), "1 failed and 1 skipped resource(s)") {
		t.Errorf("unexpected stderr: %q", env.stderr.String())
	}
	if !strings.Contains(env.stdout.String(), "Missing: "+topology.QueueBatch) {
		t.Errorf("missing queue not reported:\n%s", env.stdout.String())
	}
}

func TestSetup_ReadinessExhausted(t *testing.T) {
	env := newTestEnv(false, func(context.Context) error {
		return errors.New("connection refused")
	})

	err := execute(t, NewSetupCmd(env.depsFn))
	if !errors.Is(err, mq.ErrConnectivityExhausted) {
		t.Fatalf("expected ErrConnectivityExhausted, got %v", err)
	}
	if env.connects != 0 {
		t.Errorf("connect must not be called, got %d", env.connects)
	}
	if env.stdout.Len() != 0 {
		t.Errorf("no summary expected, got:\n%s", env.stdout.String())
	}
}

func TestSetup_ConnectionDropFails(t *testing.T) {
	env := newTestEnv(false, nil)
	env.dropAfter = 4

	err := execute(t, NewSetupCmd(env.depsFn))
	if !errors.Is(err, mq.ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	if !strings.Contains(env.stdout.String(), "Aborted:") {
		t.Errorf("summary must mention abort:\n%s", env.stdout.String())
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	env := newTestEnv(true, nil)

	if err := execute(t, NewSetupCmd(env.depsFn)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(env.stdout.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, env.stdout.String())
	}
	for _, key := range []string{"summary", "run_id", "readiness_attempts"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("key %q missing from JSON output", key)
		}
	}

	var runID string
	if err := json.Unmarshal(doc["run_id"], &runID); err != nil {
		t.Fatalf("run_id: %v", err)
	}
	if _, err := uuid.Parse(runID); err != nil {
		t.Errorf("run_id is not a UUID: %q", runID)
	}
}

func TestSetup_RecordsAudit(t *testing.T) {
	env := newTestEnv(false, nil)
	audit := &fakeAudit{}
	env.deps.Audit = audit

	if err := execute(t, NewSetupCmd(env.depsFn)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(audit.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(audit.records))
	}
	rec := audit.records[0]
	if rec.Command != "setup" || rec.OK != 17 || rec.Missing != 0 {
		t.Errorf("unexpected record: command=%s ok=%d missing=%d", rec.Command, rec.OK, rec.Missing)
	}
	if rec.FinishedAt.Before(rec.StartedAt) {
		t.Error("finished_at before started_at")
	}
}

// --- Verify Tests ---

func TestVerify_DoesNotDeclare(t *testing.T) {
	env := newTestEnv(false, nil)

	if err := execute(t, NewVerifyCmd(env.depsFn)); err != nil {
		t.Fatalf("missing resources must not fail without --strict: %v", err)
	}

	if len(env.broker.Queues) != 0 || len(env.broker.Exchanges) != 0 {
		t.Error("verify must not declare resources")
	}
	for _, c := range env.broker.Calls {
		if !strings.HasPrefix(c, "check-") {
			t.Errorf("unexpected broker call %q", c)
		}
	}
	if !strings.Contains(env.stderr.String(), "missing resources") {
		t.Errorf("unexpected stderr: %q", env.stderr.String())
	}
}

func TestVerify_Strict(t *testing.T) {
	env := newTestEnv(false, nil)

	err := execute(t, NewVerifyCmd(env.depsFn), "--strict")
	if err == nil || !strings.Contains(err.Error(), topology.QueueCritical) {
		t.Fatalf("expected missing resources error, got %v", err)
	}
}

func TestVerify_AfterSetup(t *testing.T) {
	env := newTestEnv(false, nil)

	if err := execute(t, NewSetupCmd(env.depsFn)); err != nil {
		t.Fatalf("setup: %v", err)
	}
	env.stderr.Reset()

	if err := execute(t, NewVerifyCmd(env.depsFn), "--strict"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(env.stderr.String(), "All resources present") {
		t.Errorf("unexpected stderr: %q", env.stderr.String())
	}
}

func TestVerify_MissingExchange(t *testing.T) {
	env := newTestEnv(false, nil)

	if err := execute(t, NewSetupCmd(env.depsFn)); err != nil {
		t.Fatalf("setup: %v", err)
	}
	delete(env.broker.Exchanges, topology.ExchangeAnomaly)
	env.stderr.Reset()

	if err := execute(t, NewVerifyCmd(env.depsFn)); err != nil {
		t.Fatalf("missing exchange must not fail without --strict: %v", err)
	}
	if strings.Contains(env.stderr.String(), "All resources present") {
		t.Errorf("missing exchange reported as present: %q", env.stderr.String())
	}
	if !strings.Contains(env.stderr.String(), topology.ExchangeAnomaly) {
		t.Errorf("missing exchange not named: %q", env.stderr.String())
	}

	err := execute(t, NewVerifyCmd(env.depsFn), "--strict")
	if err == nil || !strings.Contains(err.Error(), topology.ExchangeAnomaly) {
		t.Fatalf("expected missing exchange error, got %v", err)
	}
}

// --- Show Tests ---

func TestShow_NoBrokerAccess(t *testing.T) {
	env := newTestEnv(true, func(context.Context) error {
		t.Error("show must not probe the broker")
		return nil
	})

	if err := execute(t, NewShowCmd(env.depsFn)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.connects != 0 {
		t.Errorf("show must not connect, got %d connections", env.connects)
	}

	var doc struct {
		Arguments map[string]map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(env.stdout.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	critical, ok := doc.Arguments[topology.QueueCritical]
	if !ok {
		t.Fatalf("arguments for %s missing", topology.QueueCritical)
	}
	if critical[topology.ArgMaxPriority] != float64(255) {
		t.Errorf("expected max priority 255, got %v", critical[topology.ArgMaxPriority])
	}
}

// --- History Tests ---

func TestHistory_Disabled(t *testing.T) {
	env := newTestEnv(false, nil)

	err := execute(t, NewHistoryCmd(env.depsFn))
	if !errors.Is(err, ErrAuditDisabled) {
		t.Fatalf("expected ErrAuditDisabled, got %v", err)
	}
}

func TestHistory_Table(t *testing.T) {
	env := newTestEnv(false, nil)
	audit := &fakeAudit{}
	env.deps.Audit = audit

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	audit.records = []*repo.AuditRecord{
		{RunID: uuid.New(), Command: "setup", StartedAt: started, FinishedAt: started.Add(time.Second), OK: 17},
		{RunID: uuid.New(), Command: "verify", StartedAt: started.Add(time.Hour), FinishedAt: started.Add(time.Hour), Missing: 2},
	}

	if err := execute(t, NewHistoryCmd(env.depsFn), "--limit", "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(env.stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and 1 row, got %d lines:\n%s", len(lines), env.stdout.String())
	}
	if !strings.HasPrefix(lines[0], "RUN_ID") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], audit.records[1].RunID.String()) || !strings.Contains(lines[1], "verify") {
		t.Errorf("expected latest run first, got %q", lines[1])
	}
}

// --- Watch Tests ---

func TestWatch_InvalidScheduleFailsBeforeProvisioning(t *testing.T) {
	env := newTestEnv(false, nil)

	err := execute(t, NewWatchCmd(env.depsFn), "--provision", "--schedule", "not a cron")
	if err == nil || !strings.Contains(err.Error(), "not a cron") {
		t.Fatalf("expected schedule error, got %v", err)
	}
	if env.connects != 0 || len(env.broker.Exchanges) != 0 {
		t.Error("invalid schedule must be rejected before any broker call")
	}
}

type fakeLast struct {
	v   *provision.Verification
	err error
}

func (f fakeLast) Last() (*provision.Verification, error) {
	return f.v, f.err
}

func TestWatchMux_Healthz(t *testing.T) {
	env := newTestEnv(false, nil)
	def := env.deps.Definition
	logger := env.deps.Logger

	empty := provision.NewVerifier(mq.NewMockBroker(), logger, nil).Verify(context.Background(), def)

	full := mq.NewMockBroker()
	provision.NewProvisioner(full, logger, nil).Provision(context.Background(), def)
	present := provision.NewVerifier(full, logger, nil).Verify(context.Background(), def)

	delete(full.Exchanges, topology.ExchangeAnomaly)
	noExchange := provision.NewVerifier(full, logger, nil).Verify(context.Background(), def)

	tests := []struct {
		name string
		last fakeLast
		code int
		body string
	}{
		{"no verification", fakeLast{err: errors.New("no verification completed yet")}, http.StatusServiceUnavailable, "no verification"},
		{"missing", fakeLast{v: empty}, http.StatusServiceUnavailable, "missing: "},
		{"missing exchange", fakeLast{v: noExchange}, http.StatusServiceUnavailable, "missing: " + topology.ExchangeAnomaly},
		{"present", fakeLast{v: present}, http.StatusOK, "ok "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newWatchMux(env.deps.Registry, tt.last)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
			if !strings.HasPrefix(rec.Body.String(), tt.body) {
				t.Errorf("expected body prefix %q, got %q", tt.body, rec.Body.String())
			}
		})
	}
}

func TestWatchMux_Metrics(t *testing.T) {
	env := newTestEnv(false, nil)
	env.deps.Metrics.SetQueuePresent(topology.QueueHigh, true)

	mux := newWatchMux(env.deps.Registry, fakeLast{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `topology_queue_present{queue="`+topology.QueueHigh+`"} 1`) {
		t.Errorf("queue gauge not exported:\n%s", rec.Body.String())
	}
}
