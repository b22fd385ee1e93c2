package generate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jlkeet/pacific-hansard-rag/internal/config"
)

func TestOpenAIClient_Generate_PostProcessesAnswer(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"<think>reasoning</think>The minister confirmed the policy [#0]."}}]}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cfg := config.GeneratorConfig{Provider: "openai", Model: "gpt-4o-mini", BaseURL: srv.URL, APIKey: "test", Timeout: 2 * time.Second}
	cli := New(cfg, srv.Client())

	res, err := cli.Generate(context.Background(), "some prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(res.Answer, "<think>") {
		t.Fatalf("expected think tag stripped, got: %q", res.Answer)
	}
	if !strings.Contains(res.Answer, "[#0]") {
		t.Fatalf("expected citation preserved, got: %q", res.Answer)
	}
	if res.ModelUsed != "gpt-4o-mini" {
		t.Fatalf("expected model recorded, got %q", res.ModelUsed)
	}
}

func TestNew_DefaultsToOpenAIForUnknownProvider(t *testing.T) {
	cfg := config.GeneratorConfig{Provider: "something-else", Model: "m"}
	cli := New(cfg, nil)
	if _, ok := cli.(*openAIClient); !ok {
		t.Fatalf("expected openAIClient for unknown provider, got %T", cli)
	}
}

func TestNew_SelectsAnthropicClient(t *testing.T) {
	cfg := config.GeneratorConfig{Provider: "anthropic", Model: "claude-3-7-sonnet-latest"}
	cli := New(cfg, nil)
	if _, ok := cli.(*anthropicClient); !ok {
		t.Fatalf("expected anthropicClient for anthropic provider, got %T", cli)
	}
}

func TestNew_SelectsGoogleClient(t *testing.T) {
	cfg := config.GeneratorConfig{Provider: "google", Model: "gemini-1.5-flash", APIKey: "test"}
	cli := New(cfg, nil)
	if _, ok := cli.(*googleClient); !ok {
		t.Fatalf("expected googleClient for google provider, got %T", cli)
	}
}

type blockingClient struct {
	release  chan struct{}
	inFlight int32
	maxSeen  int32
}

func (b *blockingClient) Generate(ctx context.Context, p string) (Result, error) {
	n := atomic.AddInt32(&b.inFlight, 1)
	for {
		old := atomic.LoadInt32(&b.maxSeen)
		if n <= old || atomic.CompareAndSwapInt32(&b.maxSeen, old, n) {
			break
		}
	}
	<-b.release
	atomic.AddInt32(&b.inFlight, -1)
	return Result{Answer: "ok"}, nil
}

func TestWithConcurrencyLimit_BoundsInFlightCalls(t *testing.T) {
	blocking := &blockingClient{release: make(chan struct{})}
	limited := WithConcurrencyLimit(blocking, 2)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = limited.Generate(context.Background(), "q")
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(blocking.release)
	wg.Wait()

	if max := atomic.LoadInt32(&blocking.maxSeen); max > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", max)
	}
}

func TestWithConcurrencyLimit_FailsFastWhenQueueFull(t *testing.T) {
	blocking := &blockingClient{release: make(chan struct{})}
	defer close(blocking.release)
	limited := WithConcurrencyLimit(blocking, 1)

	go func() { _, _ = limited.Generate(context.Background(), "first") }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := limited.Generate(ctx, "second"); err != ErrGeneratorBusy {
		t.Fatalf("expected ErrGeneratorBusy, got %v", err)
	}
}

func TestWithConcurrencyLimit_ZeroDisablesLimit(t *testing.T) {
	cfg := config.GeneratorConfig{Provider: "openai", Model: "m"}
	cli := New(cfg, nil)
	if WithConcurrencyLimit(cli, 0) != cli {
		t.Fatalf("expected limit of 0 to return the client unchanged")
	}
}
