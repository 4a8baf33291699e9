//go:build scenedebug

package renderer

// debugAssertions turns cull stack mismatches into panics.
const debugAssertions = true
