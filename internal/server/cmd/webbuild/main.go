package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"Fireworks/internal/firework"
	"Fireworks/internal/game"

	"github.com/evanw/esbuild/pkg/api"
)

// webbuild bundles the browser viewer into web/client.js for embedding.
func main() {
	minify := flag.Bool("minify", false, "minify the bundle and drop the inline source map")
	dir := flag.String("dir", "", "server package directory (default: working directory)")
	flag.Parse()

	root := *dir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("getwd: %v", err)
		}
		root = wd
	}

	result := api.Build(buildOptions(root, *minify))
	if len(result.Errors) > 0 {
		for _, message := range result.Errors {
			log.Printf("esbuild error: %s", message.Text)
		}
		log.Fatalf("esbuild failed with %d error(s)", len(result.Errors))
	}
	for _, f := range result.OutputFiles {
		log.Printf("webbuild: wrote %s (%d bytes)", f.Path, len(f.Contents))
	}
}

func buildOptions(root string, minify bool) api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints:   []string{filepath.Join(root, "web", "src", "main.ts")},
		Outfile:       filepath.Join(root, "web", "client.js"),
		AbsWorkingDir: root,
		Bundle:        true,
		Format:        api.FormatIIFE,
		Target:        api.ES2020,
		Platform:      api.PlatformBrowser,
		LogLevel:      api.LogLevelInfo,
		Sourcemap:     api.SourceMapInline,
		Write:         true,
		Define:        sceneDefines(),
		Loader:        map[string]api.Loader{".ts": api.LoaderTS},
	}
	if minify {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
		opts.Sourcemap = api.SourceMapNone
	}
	return opts
}

// sceneDefines injects the scene constants the browser viewer shares with
// the Go side so the two cannot drift apart.
func sceneDefines() map[string]string {
	names := make([]string, 0, len(firework.Kinds()))
	for _, k := range firework.Kinds() {
		names = append(names, k.String())
	}
	kinds, _ := json.Marshal(names)
	return map[string]string{
		"__GROUND_Y__":   strconv.FormatFloat(game.GroundY, 'g', -1, 64),
		"__SPAWN_LIFT__": strconv.FormatFloat(game.SpawnLift, 'g', -1, 64),
		"__KINDS__":      string(kinds),
	}
}
