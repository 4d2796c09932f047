// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package backend

import (
	"math/rand"
	"time"
)

// SlugSource produces human-readable match identifiers. The dispatcher
// retries on collision, so sources need not guarantee uniqueness.
type SlugSource interface {
	Slug() string
}

var slugAdjectives = []string{
	"amber", "ancient", "bold", "brave", "bright", "calm", "clever",
	"cosmic", "crimson", "curious", "daring", "eager", "fierce", "gentle",
	"gilded", "golden", "hidden", "humble", "ivory", "jolly", "keen",
	"lively", "lucky", "mellow", "mighty", "nimble", "noble", "polar",
	"proud", "quiet", "rapid", "royal", "rustic", "silent", "silver",
	"solar", "steady", "swift", "vivid", "wandering",
}

var slugNouns = []string{
	"anchor", "badger", "beacon", "bison", "canyon", "comet", "condor",
	"coral", "cougar", "crane", "dolphin", "ember", "falcon", "fjord",
	"gazelle", "glacier", "harbor", "heron", "jaguar", "lagoon", "lantern",
	"lemur", "marmot", "meadow", "meteor", "narwhal", "nebula", "orchid",
	"osprey", "otter", "panther", "pebble", "quartz", "raven", "reef",
	"sparrow", "summit", "thicket", "tundra", "walrus",
}

// NewSlugSource returns a randomized two-word slug source.
func NewSlugSource() SlugSource {
	return &randomSlugSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

type randomSlugSource struct {
	rnd *rand.Rand
}

// Slug returns a fresh adjective-noun identifier.
func (s *randomSlugSource) Slug() string {
	adjective := slugAdjectives[s.rnd.Intn(len(slugAdjectives))]
	noun := slugNouns[s.rnd.Intn(len(slugNouns))]
	return adjective + "-" + noun
}
