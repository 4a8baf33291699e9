package main

import (
	"fmt"
	"strings"
)

// titleOverlay collects status lines shown in the window title.
type titleOverlay struct {
	lines []string
}

func (o *titleOverlay) AddLine(format string, args ...any) {
	o.lines = append(o.lines, fmt.Sprintf(format, args...))
}

func (o *titleOverlay) Clear() {
	o.lines = o.lines[:0]
}

func (o *titleOverlay) Text() string {
	return strings.Join(o.lines, " | ")
}
