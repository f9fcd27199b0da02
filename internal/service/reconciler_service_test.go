package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockClassEnumerator struct {
	ids []string
}

func (m *mockClassEnumerator) ListAllIDs(ctx context.Context) ([]string, error) {
	return m.ids, nil
}

type mockRecounter struct {
	mu      sync.Mutex
	counted map[string]int
}

func (m *mockRecounter) RecountClass(ctx context.Context, classID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counted == nil {
		m.counted = make(map[string]int)
	}
	m.counted[classID]++
	return nil
}

func (m *mockRecounter) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.counted {
		n += c
	}
	return n
}

func TestReconcilerSweepRecountsEveryClass(t *testing.T) {
	classes := &mockClassEnumerator{ids: []string{"class-1", "class-2", "class-3"}}
	recounter := &mockRecounter{}
	svc := NewReconcilerService(classes, recounter, ReconcilerConfig{SweepInterval: time.Hour, Workers: 2}, nil, zap.NewNop())

	svc.Start(context.Background())
	svc.Sweep(context.Background())

	require.Eventually(t, func() bool { return recounter.total() == 3 }, 2*time.Second, 10*time.Millisecond)
	svc.Stop()

	recounter.mu.Lock()
	defer recounter.mu.Unlock()
	assert.Equal(t, 1, recounter.counted["class-1"])
	assert.Equal(t, 1, recounter.counted["class-2"])
	assert.Equal(t, 1, recounter.counted["class-3"])
}

func TestReconcilerEnqueueRecount(t *testing.T) {
	recounter := &mockRecounter{}
	svc := NewReconcilerService(&mockClassEnumerator{}, recounter, ReconcilerConfig{SweepInterval: time.Hour, Workers: 1}, nil, zap.NewNop())

	svc.Start(context.Background())
	svc.EnqueueRecount("class-9")

	require.Eventually(t, func() bool { return recounter.total() == 1 }, 2*time.Second, 10*time.Millisecond)
	svc.Stop()

	recounter.mu.Lock()
	defer recounter.mu.Unlock()
	assert.Equal(t, 1, recounter.counted["class-9"])
}

func TestReconcilerStopWithoutStart(t *testing.T) {
	svc := NewReconcilerService(&mockClassEnumerator{}, &mockRecounter{}, ReconcilerConfig{}, nil, zap.NewNop())
	svc.Stop()
}
