package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoclient-munger/pkg/munger"
)

// loadMunger validates the configuration for mode and loads every layer.
func loadMunger(ctx context.Context, mode string) (*munger.Munger, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	m, err := munger.Load(ctx, cfg.MungerLayers(), cfg.MungerOptions()...)
	if err != nil {
		return nil, eris.Wrap(err, "load layers")
	}
	return m, nil
}
