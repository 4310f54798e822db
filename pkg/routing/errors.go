package routing

import (
	"errors"

	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/snap"
)

var (
	ErrNoPathFound   = errors.New("no route exists")
	ErrComposition   = errors.New("route geometry could not be composed")
	ErrGraphNotReady = errors.New("road network is not loaded yet")

	// aliases so callers only need this package
	ErrInvalidCoordinate = geometry.ErrInvalidCoordinate
	ErrNoSegmentFound    = snap.ErrNoSegmentFound
)
