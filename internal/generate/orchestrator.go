package generate

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/hearthlight/backend/internal/model/chronicle"
	"github.com/hearthlight/backend/internal/narrative"
)

// ErrProseUnavailable is returned when no prose client is configured and
// the pool has no canned prose for the theme. Prose is the one required
// artifact, so this aborts the whole request.
var ErrProseUnavailable = errors.New("prose generation unavailable")

// AssetPool is the local-first tier consulted before any remote client.
type AssetPool interface {
	TryLocal(kind chronicle.Kind, theme chronicle.Theme) (string, bool)
	TryLocalText(kind chronicle.Kind, theme chronicle.Theme) (string, bool)
}

// Composite is the merged result of one orchestrated generation. Prose is
// always set; media URLs are independently optional.
type Composite struct {
	Prose        string `json:"prose"`
	ImageURL     string `json:"imageUrl,omitempty"`
	AnimationURL string `json:"animationUrl,omitempty"`
	AudioURL     string `json:"audioUrl,omitempty"`
}

// Orchestrator fans one creation request out to the local pool and the
// per-kind job clients and merges the outcomes. It never touches the
// store; callers persist the composite explicitly, so re-running a failed
// generation is side-effect-free.
type Orchestrator struct {
	pool      AssetPool
	prose     Client
	image     Client
	animation Client
	audio     Client
}

// NewOrchestrator wires the per-kind clients. Optional clients (image,
// animation, audio) may be nil; their artifacts then resolve only through
// the local pool.
func NewOrchestrator(pool AssetPool, prose, image, animation, audio Client) *Orchestrator {
	return &Orchestrator{
		pool:      pool,
		prose:     prose,
		image:     image,
		animation: animation,
		audio:     audio,
	}
}

// outcome is the tagged per-artifact result: a value, absence, or an error.
// Keeping all three explicit keeps the merge step total.
type outcome struct {
	value string
	err   error
}

func (o outcome) ok() bool { return o.err == nil && o.value != "" }

// GenerateArtifacts resolves the request, builds prompts, and produces the
// composite. Prose failure aborts and cancels optional work in flight;
// optional artifact failures downgrade to absent fields. The merge waits
// for every dispatched branch before returning.
func (o *Orchestrator) GenerateArtifacts(ctx context.Context, req chronicle.CreationRequest) (Composite, error) {
	in := narrative.Resolve(req)
	theme, _ := chronicle.ThemeOrDefault(req.Theme)
	prosePrompt := narrative.BuildProsePrompt(in)
	visualPrompt := narrative.BuildVisualPrompt(theme, in)

	var (
		proseOut, imageOut, animationOut, audioOut outcome

		// proseReady gates the audio branch: narration needs the final
		// prose text, so it is the one ordering constraint here.
		proseReady = make(chan struct{})
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(proseReady)
		proseOut = o.generateProse(gctx, theme, prosePrompt)
		return proseOut.err
	})

	g.Go(func() error {
		imageOut = o.generateOptional(gctx, o.image, Request{
			Kind:   chronicle.KindImage,
			Theme:  theme,
			Prompt: visualPrompt,
		})
		return nil
	})

	g.Go(func() error {
		animationOut = o.generateOptional(gctx, o.animation, Request{
			Kind:   chronicle.KindAnimation,
			Theme:  theme,
			Prompt: visualPrompt,
		})
		return nil
	})

	g.Go(func() error {
		select {
		case <-proseReady:
		case <-gctx.Done():
			audioOut = outcome{err: gctx.Err()}
			return nil
		}
		if !proseOut.ok() {
			// Nothing to narrate; leave the field absent.
			return nil
		}
		audioOut = o.generateOptional(gctx, o.audio, Request{
			Kind:      chronicle.KindAudio,
			Theme:     theme,
			ProseText: proseOut.value,
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return Composite{}, err
	}

	return Composite{
		Prose:        proseOut.value,
		ImageURL:     imageOut.value,
		AnimationURL: animationOut.value,
		AudioURL:     audioOut.value,
	}, nil
}

// generateProse resolves the required artifact: canned local prose wins,
// otherwise the prose client runs. Failure here is the operation's failure.
func (o *Orchestrator) generateProse(ctx context.Context, theme chronicle.Theme, prompt string) outcome {
	if text, ok := o.pool.TryLocalText(chronicle.KindProse, theme); ok {
		log.Printf("[orchestrate] prose served from local pool, theme=%s", theme)
		return outcome{value: text}
	}

	if o.prose == nil {
		return outcome{err: ErrProseUnavailable}
	}

	text, err := o.prose.Generate(ctx, Request{
		Kind:   chronicle.KindProse,
		Theme:  theme,
		Prompt: prompt,
	})
	if err != nil {
		return outcome{err: err}
	}
	return outcome{value: text}
}

// generateOptional resolves one optional artifact: local pool, then the
// client if one is configured. Every failure is downgraded to absence.
func (o *Orchestrator) generateOptional(ctx context.Context, client Client, req Request) outcome {
	if uri, ok := o.pool.TryLocal(req.Kind, req.Theme); ok {
		log.Printf("[orchestrate] %s served from local pool, theme=%s", req.Kind, req.Theme)
		return outcome{value: uri}
	}

	if client == nil {
		return outcome{}
	}

	uri, err := client.Generate(ctx, req)
	if err != nil {
		log.Printf("[orchestrate] optional %s failed, continuing without it: %v", req.Kind, err)
		return outcome{err: err}
	}
	return outcome{value: uri}
}
