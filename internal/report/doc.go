// Package report renders a completed search run as text, JSON, or HTML, so
// "machetli search" can print a human-readable summary on exit and
// "machetli history" can re-render any prior run on demand.
package report
