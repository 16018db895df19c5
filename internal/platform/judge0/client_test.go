package judge0_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"codearena/internal/common"
	"codearena/internal/platform/judge0"
)

// fakeJudge0 serves the two batch endpoints. statusFor decides the status
// id of a token on the given poll attempt (1-based).
type fakeJudge0 struct {
	t         *testing.T
	polls     atomic.Int32
	statusFor func(token string, attempt int) int
	apiKeys   []string
	submitted []judge0.BatchItem
}

func (f *fakeJudge0) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.apiKeys = append(f.apiKeys, r.Header.Get("X-Auth-Token"))
	if r.URL.Path != "/submissions/batch" {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("base64_encoded") != "false" {
		f.t.Errorf("expected base64_encoded=false, got %q", r.URL.RawQuery)
	}

	switch r.Method {
	case http.MethodPost:
		var body struct {
			Submissions []judge0.BatchItem `json:"submissions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("decode batch body failed: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.submitted = body.Submissions
		tokens := make([]map[string]string, len(body.Submissions))
		for i := range body.Submissions {
			tokens[i] = map[string]string{"token": "tok-" + string(rune('a'+i))}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokens)
	case http.MethodGet:
		attempt := int(f.polls.Add(1))
		tokens := strings.Split(r.URL.Query().Get("tokens"), ",")
		// Answer in reverse order; the client must realign by token.
		subs := make([]map[string]interface{}, 0, len(tokens))
		for i := len(tokens) - 1; i >= 0; i-- {
			tok := tokens[i]
			status := f.statusFor(tok, attempt)
			subs = append(subs, map[string]interface{}{
				"token":  tok,
				"stdout": "out-" + tok + "\n",
				"status": map[string]interface{}{"id": status, "description": describe(status)},
				"time":   "0.012",
				"memory": 1024,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"submissions": subs})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func describe(status int) string {
	switch status {
	case 1:
		return "In Queue"
	case 2:
		return "Processing"
	case 3:
		return "Accepted"
	default:
		return "Wrong Answer"
	}
}

func newClient(url string, opts ...judge0.Option) *judge0.Client {
	opts = append([]judge0.Option{judge0.WithPollPolicy(5*time.Millisecond, 2*time.Second, 10)}, opts...)
	return judge0.NewClient(url, opts...)
}

func TestRunBatchPollsUntilTerminal(t *testing.T) {
	fake := &fakeJudge0{t: t, statusFor: func(token string, attempt int) int {
		if attempt < 3 {
			return judge0.StatusProcessing
		}
		if token == "tok-b" {
			return 4
		}
		return judge0.StatusAccepted
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := newClient(srv.URL+"/", judge0.WithAPIKey("secret"))
	items := []judge0.BatchItem{
		{LanguageID: 71, SourceCode: "print(1)", Stdin: "1", ExpectedOutput: "1"},
		{LanguageID: 71, SourceCode: "print(1)", Stdin: "2", ExpectedOutput: "2"},
	}
	results, err := client.RunBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if got := fake.polls.Load(); got != 3 {
		t.Fatalf("expected 3 polls, got %d", got)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Token != "tok-a" || results[1].Token != "tok-b" {
		t.Fatalf("results not in submission order: %s, %s", results[0].Token, results[1].Token)
	}
	if !results[0].Status.Accepted() || results[1].Status.Accepted() {
		t.Fatalf("unexpected statuses: %+v %+v", results[0].Status, results[1].Status)
	}
	if results[0].TrimmedStdout() != "out-tok-a" {
		t.Fatalf("unexpected stdout: %q", results[0].TrimmedStdout())
	}
	if results[0].TimeMs() != 12 || results[0].MemoryKB() != 1024 {
		t.Fatalf("unexpected usage: %dms %dKB", results[0].TimeMs(), results[0].MemoryKB())
	}
	if len(fake.submitted) != 2 || fake.submitted[1].Stdin != "2" {
		t.Fatalf("unexpected submitted batch: %+v", fake.submitted)
	}
	for _, key := range fake.apiKeys {
		if key != "secret" {
			t.Fatalf("expected X-Auth-Token on every request, got %q", key)
		}
	}
}

func TestRunBatchWithoutAPIKeySendsNoHeader(t *testing.T) {
	fake := &fakeJudge0{t: t, statusFor: func(string, int) int { return judge0.StatusAccepted }}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	if _, err := newClient(srv.URL).RunBatch(context.Background(), []judge0.BatchItem{{LanguageID: 54}}); err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	for _, key := range fake.apiKeys {
		if key != "" {
			t.Fatalf("expected no X-Auth-Token header, got %q", key)
		}
	}
}

func TestPollBatchGivesUpAfterMaxAttempts(t *testing.T) {
	fake := &fakeJudge0{t: t, statusFor: func(string, int) int { return judge0.StatusInQueue }}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := judge0.NewClient(srv.URL, judge0.WithPollPolicy(time.Millisecond, 5*time.Second, 3))
	_, err := client.PollBatch(context.Background(), []string{"tok-a"})
	if !errors.Is(err, judge0.ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if got := fake.polls.Load(); got != 3 {
		t.Fatalf("expected 3 polls, got %d", got)
	}
	if common.HTTPStatusFromError(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 mapping, got %d", common.HTTPStatusFromError(err))
	}
}

func TestPollBatchStopsOnCancel(t *testing.T) {
	fake := &fakeJudge0{t: t, statusFor: func(string, int) int { return judge0.StatusProcessing }}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	client := judge0.NewClient(srv.URL, judge0.WithPollPolicy(5*time.Millisecond, time.Minute, 1000))
	_, err := client.PollBatch(ctx, []string{"tok-a"})
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if status := common.HTTPStatusFromError(err); status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on cancellation, got %d", status)
	}
}

func TestPollBatchRequestDeadlineIsServiceUnavailable(t *testing.T) {
	fake := &fakeJudge0{t: t, statusFor: func(string, int) int { return judge0.StatusProcessing }}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	client := judge0.NewClient(srv.URL, judge0.WithPollPolicy(5*time.Millisecond, time.Minute, 1000))
	_, err := client.PollBatch(ctx, []string{"tok-a"})
	if status := common.HTTPStatusFromError(err); status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the request deadline passes, got %d (%v)", status, err)
	}
}

func TestSubmitBatchFailureIsServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue is full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).RunBatch(context.Background(), []judge0.BatchItem{{LanguageID: 71}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if status := common.HTTPStatusFromError(err); status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
}

func TestSubmitBatchRejectsTokenMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"token":"only-one"}]`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).SubmitBatch(context.Background(), []judge0.BatchItem{{}, {}})
	if err == nil || !strings.Contains(err.Error(), "1 tokens for 2") {
		t.Fatalf("expected token count error, got %v", err)
	}
}

func TestRunBatchEmpty(t *testing.T) {
	_, err := judge0.NewClient("http://unused").RunBatch(context.Background(), nil)
	if common.HTTPStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %v", err)
	}
}

func TestResultParsing(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		timeMs int
		memory int
		stdout string
	}{
		{name: "string time", body: `{"time":"0.25","memory":2048,"stdout":"  7 \n"}`, timeMs: 250, memory: 2048, stdout: "7"},
		{name: "nulls", body: `{"time":null,"memory":null,"stdout":null}`, timeMs: 0, memory: 0, stdout: ""},
		{name: "fractional memory", body: `{"time":"1","memory":3.5}`, timeMs: 1000, memory: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r judge0.Result
			if err := json.Unmarshal([]byte(tc.body), &r); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if r.TimeMs() != tc.timeMs {
				t.Fatalf("expected %dms, got %d", tc.timeMs, r.TimeMs())
			}
			if r.MemoryKB() != tc.memory {
				t.Fatalf("expected %dKB, got %d", tc.memory, r.MemoryKB())
			}
			if r.TrimmedStdout() != tc.stdout {
				t.Fatalf("expected stdout %q, got %q", tc.stdout, r.TrimmedStdout())
			}
		})
	}
}
