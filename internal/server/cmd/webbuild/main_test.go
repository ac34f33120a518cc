package main

import (
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
)

func TestBuildOptions(t *testing.T) {
	root := filepath.Join("srv", "pkg")
	opts := buildOptions(root, false)
	if opts.Outfile != filepath.Join(root, "web", "client.js") {
		t.Errorf("unexpected outfile %s", opts.Outfile)
	}
	if len(opts.EntryPoints) != 1 || opts.EntryPoints[0] != filepath.Join(root, "web", "src", "main.ts") {
		t.Errorf("unexpected entry points %v", opts.EntryPoints)
	}
	if opts.Sourcemap != api.SourceMapInline || opts.MinifySyntax {
		t.Error("expected an unminified build with inline source map")
	}

	minified := buildOptions(root, true)
	if !minified.MinifyWhitespace || !minified.MinifyIdentifiers || minified.Sourcemap != api.SourceMapNone {
		t.Error("expected minified build without source map")
	}
}

func TestSceneDefines(t *testing.T) {
	defs := sceneDefines()
	expected := map[string]string{
		"__GROUND_Y__":   "-2",
		"__SPAWN_LIFT__": "5",
		"__KINDS__":      `["peony","willow","crossette"]`,
	}
	for k, v := range expected {
		if defs[k] != v {
			t.Errorf("define %s = %q, expected %q", k, defs[k], v)
		}
	}
}
