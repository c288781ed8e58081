package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

type mockSource struct {
	holdings []*models.Holding
	err      error
	users    []string
}

func (m *mockSource) GetHoldingsForUser(_ context.Context, username string) ([]*models.Holding, error) {
	m.users = append(m.users, username)
	return m.holdings, m.err
}

func TestReloader_Reload_ReplacesRows(t *testing.T) {
	view := &recordingView{}
	r := New(nil, view)
	r.Load([]*models.Holding{
		holding("7", "AAPL", "4", "40", "10"),
		holding("9", "MSFT", "2", "600", "300"),
	})

	src := &mockSource{holdings: []*models.Holding{holding("9", "MSFT", "2", "600", "300")}}
	require.NoError(t, NewReloader(r, src, "demo").Reload(context.Background()))

	assert.Equal(t, []string{"demo"}, src.users)
	_, ok := r.Holding("7")
	assert.False(t, ok, "sold-out holding is gone")
	assert.Equal(t, 1, r.Summary().Holdings)
	assert.True(t, r.Summary().TotalCurrentValue.Equal(d("600")))
	assert.Len(t, view.Snaps(), 2)
}

func TestReloader_Reload_KeepsRowsOnError(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{holding("7", "AAPL", "4", "40", "10")})

	err := NewReloader(r, &mockSource{err: errors.New("connection refused")}, "demo").Reload(context.Background())
	assert.ErrorContains(t, err, "failed to reload holdings")

	h, ok := r.Holding("7")
	require.True(t, ok)
	assert.True(t, h.Quantity.Equal(d("4")))
}
