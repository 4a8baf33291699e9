//go:build !scenedebug

package renderer

const debugAssertions = false
