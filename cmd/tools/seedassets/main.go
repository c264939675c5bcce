// Command seedassets pre-populates the local asset pool: one background
// image per theme plus the shared texture overlays, generated through the
// media backend and saved into the pool layout the API serves from.
// Already-seeded files are skipped, so the tool is safe to re-run.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/hearthlight/backend/internal/config"
	"github.com/hearthlight/backend/internal/generate"
	"github.com/hearthlight/backend/internal/model/chronicle"
	"github.com/hearthlight/backend/internal/narrative"
)

func main() {
	force := flag.Bool("force", false, "regenerate backgrounds even when the pool already has them")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.Media.Enabled() {
		log.Fatal("MEDIA_API_TOKEN and MEDIA_MODEL_VERSION must be set to seed assets")
	}

	client := generate.NewMediaClient(generate.MediaConfig{
		BaseURL:      cfg.Media.BaseURL,
		APIToken:     cfg.Media.APIToken,
		ModelVersion: cfg.Media.ModelVersion,
		Width:        cfg.Media.Width,
		Height:       cfg.Media.Height,
		Steps:        cfg.Media.Steps,
		Guidance:     cfg.Media.Guidance,
		PollInterval: cfg.Media.PollInterval,
		MaxAttempts:  cfg.Media.MaxAttempts,
	}, narrative.NegativeImagePrompt)

	type task struct {
		name    string
		theme   chronicle.Theme
		prompt  string
		outPath string
	}

	var tasks []task
	for theme, themeCfg := range chronicle.Themes {
		tasks = append(tasks, task{
			name:    "background " + string(theme),
			theme:   theme,
			prompt:  themeCfg.ImagePrompt,
			outPath: filepath.Join(cfg.Storage.AssetDir, "image", string(theme), "background.webp"),
		})
	}

	// Shared overlays used by every theme on the reveal page.
	textures := map[string]string{
		"parchment":  "subtle parchment paper texture, warm ivory, fine grain, no text, no watermark, seamless, soft lighting, high resolution",
		"mist":       "soft atmospheric mist overlay, transparent edges, gentle light bloom, no people, no text, seamless, cinematic lighting",
		"light-rays": "subtle light rays overlay, diagonal beams, very soft, transparent background, no people, no text, cinematic, high resolution",
	}
	for name, prompt := range textures {
		tasks = append(tasks, task{
			name:    "texture " + name,
			theme:   chronicle.DefaultTheme,
			prompt:  prompt,
			outPath: filepath.Join(cfg.Storage.AssetDir, "texture", "common", name+".webp"),
		})
	}

	ctx := context.Background()
	for _, tk := range tasks {
		if !*force && fileExists(tk.outPath) {
			log.Printf("skipping %s, already seeded", tk.name)
			continue
		}

		log.Printf("generating %s", tk.name)
		uri, err := client.Generate(ctx, generate.Request{
			Kind:   chronicle.KindImage,
			Theme:  tk.theme,
			Prompt: tk.prompt,
		})
		if err != nil {
			log.Printf("warning: %s failed: %v", tk.name, err)
			continue
		}

		if err := download(ctx, uri, tk.outPath); err != nil {
			log.Printf("warning: saving %s failed: %v", tk.name, err)
			continue
		}
		log.Printf("seeded %s -> %s", tk.name, tk.outPath)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func download(ctx context.Context, uri, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch returned %d", resp.StatusCode)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}
