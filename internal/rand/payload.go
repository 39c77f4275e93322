// Copyright © 2018 One Concern

// Package rand generates deterministic filler payloads, so that benchmark runs
// store the same bytes from one run to the next.
package rand

import (
	"math"
	"strings"
	"sync"
)

const lorem = "is simply dummy text of the printing and typesetting industry. " +
	"Lorem Ipsum has been the industry's standard dummy text ever since the 1500s, " +
	"when an unknown printer took a galley of type and scrambled it to make a type specimen book. " +
	"It has survived not only five centuries, but also the leap into electronic typesetting, " +
	"remaining essentially unchanged. It was popularised in the 1960s with the release of " +
	"Letraset sheets containing Lorem Ipsum passages, and more recently with desktop publishing " +
	"software like Aldus PageMaker including versions of Lorem Ipsum "

var (
	onceText sync.Once
	text     string
)

// large enough for all callers: longer payloads are built on demand
const cachedSize = 1 << 16

func makeText() {
	text = strings.Repeat(lorem, cachedSize/len(lorem)+1)[:cachedSize]
}

// Lorem returns n bytes of filler text
func Lorem(n int) string {
	if n <= 0 {
		return ""
	}
	onceText.Do(makeText)
	if n <= len(text) {
		return text[:n]
	}
	return strings.Repeat(lorem, n/len(lorem)+1)[:n]
}

// Repeat returns n copies of a pattern
func Repeat(pattern string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(pattern, n)
}

const mixer uint64 = 120301070105014129

// Mix scrambles an id into a well spread number. Multiplication wraps around.
func Mix(id uint64) uint64 {
	return (id * mixer) % math.MaxUint64
}
