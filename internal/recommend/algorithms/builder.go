// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package algorithms

import (
	"context"
	"fmt"

	"github.com/tomtom215/wayfarer/internal/recommend"
)

// BuilderConfig configures one model rebuild.
type BuilderConfig struct {
	ItemCF  ItemCFConfig
	Content ContentTFIDFConfig
	KMeans  KMeansConfig
}

// DefaultBuilderConfig returns defaults for all models.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		ItemCF:  DefaultItemCFConfig(),
		Content: DefaultContentTFIDFConfig(),
		KMeans:  DefaultKMeansConfig(),
	}
}

// Builder fits a fresh, coherent model set per training cycle. The
// engine publishes the result as an immutable snapshot, so instances
// are never retrained in place.
type Builder struct {
	config BuilderConfig
}

// NewBuilder creates a model builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	return &Builder{config: cfg}
}

// Build trains all four models over the same training data.
func (b *Builder) Build(ctx context.Context, data recommend.TrainingData) (*recommend.ModelSet, error) {
	itemCF := NewItemCF(b.config.ItemCF)
	if err := itemCF.Train(ctx, data); err != nil {
		return nil, fmt.Errorf("train %s: %w", itemCF.Name(), err)
	}

	content := NewContentTFIDF(b.config.Content)
	if err := content.Train(ctx, data); err != nil {
		return nil, fmt.Errorf("train %s: %w", content.Name(), err)
	}

	popularity := NewPopularity()
	if err := popularity.Train(ctx, data); err != nil {
		return nil, fmt.Errorf("train %s: %w", popularity.Name(), err)
	}

	clusters := NewKMeansClusters(b.config.KMeans)
	if err := clusters.Train(ctx, data); err != nil {
		return nil, fmt.Errorf("train %s: %w", clusters.Name(), err)
	}

	return &recommend.ModelSet{
		ItemCF:     itemCF,
		Content:    content,
		Popularity: popularity,
		Clusters:   clusters,
	}, nil
}
