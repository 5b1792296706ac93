// Package assets fetches and caches the mesh assets placed in the city.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-city/internal/engine/model"
	"github.com/Faultbox/midgard-city/internal/logger"
	"github.com/Faultbox/midgard-city/pkg/formats"
)

// Loaded is the joined result of LoadAll.
type Loaded struct {
	Meshes map[string]*model.Mesh
	// Degraded lists paths that were replaced by the fallback cube, sorted.
	Degraded []string
}

// Manager loads meshes from a Source. Fetched bytes are cached so maps
// sharing assets only hit the source once.
type Manager struct {
	source      Source
	cache       *Cache
	normals     model.NormalsPolicy
	concurrency int
	log         *zap.Logger

	mu     sync.Mutex
	meshes map[string]*model.Mesh
}

// Option configures a Manager.
type Option func(*Manager)

// WithNormals sets the missing-normals policy.
func WithNormals(p model.NormalsPolicy) Option {
	return func(m *Manager) { m.normals = p }
}

// WithConcurrency bounds the number of assets loaded at once.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// NewManager creates a new asset manager reading from src.
func NewManager(src Source, opts ...Option) *Manager {
	m := &Manager{
		source:      src,
		cache:       NewCache(),
		concurrency: 4,
		log:         logger.Named("assets"),
		meshes:      make(map[string]*model.Mesh),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cache returns the byte cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// MaterialPath returns the material library path paired with a mesh path.
func MaterialPath(meshPath string) string {
	return strings.TrimSuffix(meshPath, path.Ext(meshPath)) + ".mtl"
}

// LoadMesh fetches meshPath and its sibling .mtl and builds the mesh.
// Any failure other than cancellation yields the unit cube with degraded
// set, so callers always get something to place.
func (m *Manager) LoadMesh(ctx context.Context, meshPath string) (mesh *model.Mesh, degraded bool, err error) {
	m.mu.Lock()
	cached, ok := m.meshes[meshPath]
	m.mu.Unlock()
	if ok {
		return cached, false, nil
	}

	mesh, err = m.load(ctx, meshPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		m.log.Warn("asset unavailable, using fallback cube",
			zap.String("asset", meshPath),
			zap.Error(err))
		return model.UnitCube(), true, nil
	}

	m.mu.Lock()
	m.meshes[meshPath] = mesh
	m.mu.Unlock()
	return mesh, false, nil
}

func (m *Manager) load(ctx context.Context, meshPath string) (*model.Mesh, error) {
	meshText, err := m.fetch(ctx, meshPath)
	if err != nil {
		return nil, err
	}
	obj, err := formats.ParseOBJ(string(meshText))
	if err != nil {
		return nil, fmt.Errorf("parsing mesh %s: %w", meshPath, err)
	}

	lib, err := m.materials(ctx, meshPath)
	if err != nil {
		return nil, err
	}

	return model.Build(obj, lib, model.LoadOptions{
		Name:    meshPath,
		Normals: m.normals,
	})
}

// materials fetches and parses the sibling .mtl of meshPath. A missing,
// unreachable or malformed library yields an empty one, which leaves every
// face white. Only cancellation is returned as an error.
func (m *Manager) materials(ctx context.Context, meshPath string) (formats.MaterialLib, error) {
	mtlPath := MaterialPath(meshPath)
	text, err := m.fetch(ctx, mtlPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrNotFound) {
			m.log.Debug("no material library", zap.String("asset", meshPath))
		} else {
			m.log.Warn("material library unavailable, faces stay white",
				zap.String("asset", mtlPath),
				zap.Error(err))
		}
		return formats.MaterialLib{}, nil
	}

	lib, err := formats.ParseMTL(string(text))
	if err != nil {
		m.log.Warn("material library malformed, faces stay white",
			zap.String("asset", mtlPath),
			zap.Error(err))
		return formats.MaterialLib{}, nil
	}
	return lib, nil
}

func (m *Manager) fetch(ctx context.Context, p string) ([]byte, error) {
	if data, ok := m.cache.Get(p); ok {
		return data, nil
	}
	data, err := m.source.Fetch(ctx, p)
	if err != nil {
		return nil, err
	}
	m.cache.Set(p, data)
	return data, nil
}

// LoadAll loads every distinct path concurrently and returns once all
// loads have finished. The only error is cancellation of ctx.
func (m *Manager) LoadAll(ctx context.Context, paths []string) (*Loaded, error) {
	unique := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}

	var (
		mu  sync.Mutex
		out = &Loaded{Meshes: make(map[string]*model.Mesh, len(unique))}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, p := range unique {
		g.Go(func() error {
			mesh, degraded, err := m.LoadMesh(gctx, p)
			if err != nil {
				return fmt.Errorf("loading %s: %w", p, err)
			}
			mu.Lock()
			out.Meshes[p] = mesh
			if degraded {
				out.Degraded = append(out.Degraded, p)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(out.Degraded)
	m.log.Info("assets loaded",
		zap.Int("count", len(out.Meshes)),
		zap.Int("degraded", len(out.Degraded)))
	return out, nil
}
