package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/loteamento/internal/domain"
)

// listOnlyRegistry serves a fixed listing and counts List calls.
type listOnlyRegistry struct {
	blocks []domain.Block
	err    error
	lists  atomic.Int32
}

func (r *listOnlyRegistry) List(context.Context) ([]domain.Block, error) {
	r.lists.Add(1)
	return r.blocks, r.err
}

func (r *listOnlyRegistry) Create(context.Context, string) (domain.Block, error) {
	return domain.Block{}, errors.New("not implemented")
}

func (r *listOnlyRegistry) Replace(context.Context, domain.Block) (domain.Block, error) {
	return domain.Block{}, errors.New("not implemented")
}

func (r *listOnlyRegistry) Delete(context.Context, string) error {
	return errors.New("not implemented")
}

func (r *listOnlyRegistry) AddLot(context.Context, string, domain.Lot) (domain.Block, error) {
	return domain.Block{}, errors.New("not implemented")
}

func (r *listOnlyRegistry) UpdateLotStatus(context.Context, string, int, domain.Status) (domain.Block, error) {
	return domain.Block{}, errors.New("not implemented")
}

func (r *listOnlyRegistry) UpdateOwner(context.Context, string, int, domain.Owner) (domain.Block, error) {
	return domain.Block{}, errors.New("not implemented")
}

func TestGetCreatesAndLoads(t *testing.T) {
	reg := &listOnlyRegistry{blocks: []domain.Block{{ID: "Q1"}}}
	m := NewManager(reg, time.Hour, slog.Default())

	pm, id, created := m.Get(context.Background(), "")
	require.NotNil(t, pm)
	assert.True(t, created)
	assert.NotEmpty(t, id)
	assert.Len(t, pm.State().Blocks, 1)
	assert.EqualValues(t, 1, reg.lists.Load())
}

func TestGetReusesSession(t *testing.T) {
	reg := &listOnlyRegistry{}
	m := NewManager(reg, time.Hour, slog.Default())
	ctx := context.Background()

	first, id, _ := m.Get(ctx, "")
	second, id2, created := m.Get(ctx, id)

	assert.False(t, created)
	assert.Equal(t, id, id2)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, reg.lists.Load(), "an existing session must not reload")
}

func TestGetUnknownIDStartsNewSession(t *testing.T) {
	m := NewManager(&listOnlyRegistry{}, time.Hour, slog.Default())

	_, id, created := m.Get(context.Background(), "forged")
	assert.True(t, created)
	assert.NotEqual(t, "forged", id)
}

func TestGetLoadFailureStillReturnsSession(t *testing.T) {
	reg := &listOnlyRegistry{err: errors.New("registry down")}
	m := NewManager(reg, time.Hour, slog.Default())

	pm, _, created := m.Get(context.Background(), "")
	require.NotNil(t, pm)
	assert.True(t, created)
	assert.Empty(t, pm.State().Blocks)
}

func TestIdleSessionsExpire(t *testing.T) {
	m := NewManager(&listOnlyRegistry{}, time.Minute, slog.Default())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_, idle, _ := m.Get(ctx, "")
	_, active, _ := m.Get(ctx, "")

	now = now.Add(45 * time.Second)
	_, _, _ = m.Get(ctx, active)

	now = now.Add(30 * time.Second)
	_, _, created := m.Get(ctx, active)
	assert.False(t, created)
	assert.Equal(t, 1, m.Len())

	_, _, created = m.Get(ctx, idle)
	assert.True(t, created)
}
