// Package ingest turns repository pushes of product photos into blog posts:
// it parses push webhooks, asks a multimodal completion API to write the
// review, pulls the trailer metadata out of the answer and stores the post.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultImagePrefix is the repository directory watched for new photos.
const DefaultImagePrefix = "images/"

// Commit is the part of a push commit the webhook cares about.
type Commit struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// PushEvent is a repository push notification.
type PushEvent struct {
	Ref     string   `json:"ref"`
	Commits []Commit `json:"commits"`
}

// ParsePush decodes a push payload.
func ParsePush(body []byte) (PushEvent, error) {
	var ev PushEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return PushEvent{}, fmt.Errorf("parse push: %w", err)
	}
	return ev, nil
}

// Images returns the added and removed paths under prefix across all
// commits, de-duplicated in first-seen order.
func (ev PushEvent) Images(prefix string) (added, removed []string) {
	seenAdded := make(map[string]struct{})
	seenRemoved := make(map[string]struct{})
	for _, c := range ev.Commits {
		added = appendUnder(added, seenAdded, c.Added, prefix)
		removed = appendUnder(removed, seenRemoved, c.Removed, prefix)
	}
	return added, removed
}

// ImageGroup is the set of images one commit added.
type ImageGroup struct {
	CommitID string
	Paths    []string
}

// ImageGroups returns, per commit, the images that commit added. A path
// already claimed by an earlier commit is not repeated; commits with no new
// images are skipped.
func (ev PushEvent) ImageGroups(prefix string) []ImageGroup {
	seen := make(map[string]struct{})
	var groups []ImageGroup
	for _, c := range ev.Commits {
		paths := appendUnder(nil, seen, c.Added, prefix)
		if len(paths) == 0 {
			continue
		}
		groups = append(groups, ImageGroup{CommitID: c.ID, Paths: paths})
	}
	return groups
}

func appendUnder(dst []string, seen map[string]struct{}, paths []string, prefix string) []string {
	for _, p := range paths {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		dst = append(dst, p)
	}
	return dst
}
