// Package web holds the HTML templates, embedded into the binary so the
// server has no runtime dependency on the working directory.
package web

import "embed"

// Templates contains templates/*.html. Every page is parsed together with
// base.html and partials.html and rendered through the "base" template.
//
//go:embed templates/*.html
var Templates embed.FS
