/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package template renders the logging-agent configuration bodies. The
// reconciler core only consumes rendered text; it never assembles these
// bodies by string concatenation.
package template

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed templates/fluent.conf.tmpl
var fluentConfTemplate string

//go:embed templates/throttle-config.yaml.tmpl
var throttleConfigTemplate string

//go:embed templates/secure-forward.conf.tmpl
var secureForwardTemplate string

// Artifact names accepted by the default renderer.
const (
	RefFluentConf     = "fluent.conf"
	RefThrottleConfig = "throttle-config.yaml"
	RefSecureForward  = "secure-forward.conf"
)

// Renderer renders a named template with the given variables.
type Renderer interface {
	Render(ref string, vars map[string]any) (string, error)
}

// LookupFunc resolves a template reference to its raw content.
type LookupFunc func(ref string) (string, bool)

type renderer struct {
	lookup LookupFunc
}

// New returns a Renderer backed by the embedded artifact templates.
func New() Renderer {
	return NewWithLookup(NewLookup(map[string]string{
		RefFluentConf:     fluentConfTemplate,
		RefThrottleConfig: throttleConfigTemplate,
		RefSecureForward:  secureForwardTemplate,
	}))
}

// NewWithLookup returns a Renderer that resolves references through the
// given lookup. Used by tests and by callers that override artifact bodies.
func NewWithLookup(lookup LookupFunc) Renderer {
	return &renderer{lookup: lookup}
}

// NewLookup builds a LookupFunc from a map of reference names to raw
// template content.
func NewLookup(templates map[string]string) LookupFunc {
	return func(ref string) (string, bool) {
		tmpl, ok := templates[ref]
		return tmpl, ok
	}
}

func (r *renderer) Render(ref string, vars map[string]any) (string, error) {
	raw, ok := r.lookup(ref)
	if !ok {
		return "", fmt.Errorf("unknown template reference %q", ref)
	}

	tmpl, err := template.New(ref).Option("missingkey=error").Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", ref, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", ref, err)
	}
	return buf.String(), nil
}
