package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
)

// DefaultProbeLimit bounds concurrent media probes when the caller passes 0.
const DefaultProbeLimit = 4

// ProbeFunc returns the metadata duration in seconds for a media URL.
type ProbeFunc func(ctx context.Context, url string) (float64, error)

// Probe fills the missing durations of video scenes from their media
// metadata, probing up to limit scenes concurrently. The first failure
// cancels the remaining probes. Image scenes and scenes with explicit
// durations are left untouched.
func Probe(ctx context.Context, scenes []SceneConfig, prober ProbeFunc, limit int) error {
	if prober == nil {
		return errors.New("project: prober is required")
	}
	if limit <= 0 {
		limit = DefaultProbeLimit
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range scenes {
		sc := &scenes[i]
		if sc.Type != SceneVideo || sc.Duration > 0 {
			continue
		}
		g.Go(func() error {
			d, err := prober(ctx, sc.Media)
			if err != nil {
				return fmt.Errorf("probe scene %s: %w", sc.ID, err)
			}
			if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
				return fmt.Errorf("probe scene %s: media reports duration %v", sc.ID, d)
			}
			sc.Duration = d
			slog.Debug("project: scene duration probed", "scene", sc.ID, "duration", d)
			return nil
		})
	}
	return g.Wait()
}
