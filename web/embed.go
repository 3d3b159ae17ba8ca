// Package web holds the page templates and static assets served by
// internal/http.
package web

import "embed"

// TemplatesFS holds the list, edit, statistics and notification templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds app.css and app.js, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
