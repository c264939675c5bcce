package generate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hearthlight/backend/internal/model/chronicle"
)

// fakePool is an in-memory AssetPool keyed by kind/theme.
type fakePool struct {
	uris  map[chronicle.Kind]string
	texts map[chronicle.Kind]string
}

func (p *fakePool) TryLocal(kind chronicle.Kind, _ chronicle.Theme) (string, bool) {
	uri, ok := p.uris[kind]
	return uri, ok
}

func (p *fakePool) TryLocalText(kind chronicle.Kind, _ chronicle.Theme) (string, bool) {
	text, ok := p.texts[kind]
	return text, ok
}

func emptyPool() *fakePool {
	return &fakePool{uris: map[chronicle.Kind]string{}, texts: map[chronicle.Kind]string{}}
}

// recordingClient returns a scripted result and records each invocation.
type recordingClient struct {
	mu     sync.Mutex
	name   string
	result string
	err    error
	delay  time.Duration

	calls    int
	lastReq  Request
	recorder *callRecorder
}

type callRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	r.order = append(r.order, name)
	r.mu.Unlock()
}

func (c *recordingClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.mu.Lock()
	c.calls++
	c.lastReq = req
	c.mu.Unlock()
	if c.recorder != nil {
		c.recorder.record(c.name)
	}
	if c.err != nil {
		return "", c.err
	}
	return c.result, nil
}

func (c *recordingClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func birthdayRequest() chronicle.CreationRequest {
	return chronicle.CreationRequest{
		Recipient: chronicle.Recipient{Name: "June", Relationship: "friend"},
		Occasion:  chronicle.Occasion{Label: "Birthday"},
		Narrative: chronicle.Narrative{Tone: "playful & light"},
		Theme:     chronicle.ThemeOceanCalm,
	}
}

func TestGenerateArtifactsFullSuccess(t *testing.T) {
	prose := &recordingClient{name: "prose", result: "Dear friend, the year turns."}
	image := &recordingClient{name: "image", result: "https://cdn.example/i.webp"}
	animation := &recordingClient{name: "animation", result: "https://cdn.example/a.json"}
	audio := &recordingClient{name: "audio", result: "/media/n.mp3"}

	orch := NewOrchestrator(emptyPool(), prose, image, animation, audio)

	got, err := orch.GenerateArtifacts(context.Background(), birthdayRequest())
	if err != nil {
		t.Fatalf("GenerateArtifacts err: %v", err)
	}
	if got.Prose != "Dear friend, the year turns." {
		t.Fatalf("unexpected prose: %q", got.Prose)
	}
	if got.ImageURL != "https://cdn.example/i.webp" || got.AnimationURL != "https://cdn.example/a.json" || got.AudioURL != "/media/n.mp3" {
		t.Fatalf("unexpected composite: %+v", got)
	}
	if audio.lastReq.ProseText != got.Prose {
		t.Fatalf("audio client received prose %q, want %q", audio.lastReq.ProseText, got.Prose)
	}
}

func TestLocalPoolShortCircuitsRemoteClients(t *testing.T) {
	pool := emptyPool()
	pool.uris[chronicle.KindImage] = "/assets/pool/image/ocean-calm/X.webp"
	pool.uris[chronicle.KindAnimation] = "/assets/pool/animation/ocean-calm/Y.json"
	pool.uris[chronicle.KindAudio] = "/assets/pool/audio/ocean-calm/Z.mp3"
	pool.texts[chronicle.KindProse] = "Canned warmth."

	prose := &recordingClient{name: "prose", result: "unused"}
	image := &recordingClient{name: "image", result: "unused"}
	animation := &recordingClient{name: "animation", result: "unused"}
	audio := &recordingClient{name: "audio", result: "unused"}

	orch := NewOrchestrator(pool, prose, image, animation, audio)

	got, err := orch.GenerateArtifacts(context.Background(), birthdayRequest())
	if err != nil {
		t.Fatalf("GenerateArtifacts err: %v", err)
	}

	if got.Prose != "Canned warmth." {
		t.Fatalf("unexpected prose: %q", got.Prose)
	}
	if got.ImageURL != "/assets/pool/image/ocean-calm/X.webp" {
		t.Fatalf("unexpected image URL: %q", got.ImageURL)
	}
	for _, c := range []*recordingClient{prose, image, animation, audio} {
		if n := c.callCount(); n != 0 {
			t.Fatalf("client %s invoked %d times despite pool hit", c.name, n)
		}
	}
}

func TestProseFailureAbortsOperation(t *testing.T) {
	proseErr := genErr(ErrRemoteFailure, "model unavailable", nil)
	prose := &recordingClient{name: "prose", err: proseErr}
	image := &recordingClient{name: "image", result: "https://cdn.example/i.webp"}

	orch := NewOrchestrator(emptyPool(), prose, image, nil, nil)

	_, err := orch.GenerateArtifacts(context.Background(), birthdayRequest())
	if err == nil {
		t.Fatal("expected error when prose fails")
	}
	var gerr *GenerationError
	if !errors.As(err, &gerr) || gerr.Kind != ErrRemoteFailure {
		t.Fatalf("expected prose remote_failure, got %v", err)
	}
}

func TestOptionalFailureYieldsAbsentField(t *testing.T) {
	prose := &recordingClient{name: "prose", result: "The chapter opens."}
	image := &recordingClient{name: "image", err: genErr(ErrTimeout, "poll budget exhausted", nil)}
	animation := &recordingClient{name: "animation", result: "https://cdn.example/a.json"}

	orch := NewOrchestrator(emptyPool(), prose, image, animation, nil)

	got, err := orch.GenerateArtifacts(context.Background(), birthdayRequest())
	if err != nil {
		t.Fatalf("optional failure must not fail the operation: %v", err)
	}
	if got.Prose == "" {
		t.Fatal("prose missing")
	}
	if got.ImageURL != "" {
		t.Fatalf("failed image should be absent, got %q", got.ImageURL)
	}
	if got.AnimationURL != "https://cdn.example/a.json" {
		t.Fatalf("animation should be unaffected, got %q", got.AnimationURL)
	}
}

func TestAudioDispatchedOnlyAfterProse(t *testing.T) {
	rec := &callRecorder{}
	prose := &recordingClient{name: "prose", result: "Slow prose.", delay: 20 * time.Millisecond, recorder: rec}
	audio := &recordingClient{name: "audio", result: "/media/n.mp3", recorder: rec}

	orch := NewOrchestrator(emptyPool(), prose, nil, nil, audio)

	if _, err := orch.GenerateArtifacts(context.Background(), birthdayRequest()); err != nil {
		t.Fatalf("GenerateArtifacts err: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.order) != 2 || rec.order[0] != "prose" || rec.order[1] != "audio" {
		t.Fatalf("invocation order = %v, want [prose audio]", rec.order)
	}
}

func TestAudioSkippedWhenProseFails(t *testing.T) {
	audio := &recordingClient{name: "audio", result: "/media/n.mp3"}
	prose := &recordingClient{name: "prose", err: genErr(ErrMissingOutput, "empty", nil)}

	orch := NewOrchestrator(emptyPool(), prose, nil, nil, audio)

	if _, err := orch.GenerateArtifacts(context.Background(), birthdayRequest()); err == nil {
		t.Fatal("expected error")
	}
	if n := audio.callCount(); n != 0 {
		t.Fatalf("audio dispatched %d times despite prose failure", n)
	}
}

func TestNilOptionalClientsResolveAbsent(t *testing.T) {
	prose := &recordingClient{name: "prose", result: "Only words."}

	orch := NewOrchestrator(emptyPool(), prose, nil, nil, nil)

	got, err := orch.GenerateArtifacts(context.Background(), birthdayRequest())
	if err != nil {
		t.Fatalf("GenerateArtifacts err: %v", err)
	}
	if got.ImageURL != "" || got.AnimationURL != "" || got.AudioURL != "" {
		t.Fatalf("expected absent media, got %+v", got)
	}
}

func TestNoProsePathAvailable(t *testing.T) {
	orch := NewOrchestrator(emptyPool(), nil, nil, nil, nil)

	_, err := orch.GenerateArtifacts(context.Background(), birthdayRequest())
	if !errors.Is(err, ErrProseUnavailable) {
		t.Fatalf("expected ErrProseUnavailable, got %v", err)
	}
}
