package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "intcode.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetProgram(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	program := []int64{3, 0, 4, 0, 99}

	h, err := s.PutProgram(ctx, "echo", program)
	require.NoError(t, err)
	assert.Equal(t, Hash(program), h)
	assert.Len(t, h, 64)

	got, err := s.GetProgram(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, program, got)
}

func TestPutProgramIsIdempotent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	program := []int64{104, -7, 99}

	h1, err := s.PutProgram(ctx, "first", program)
	require.NoError(t, err)
	h2, err := s.PutProgram(ctx, "second", program)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	list, err := s.ListPrograms(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Name)
	assert.Equal(t, 3, list[0].Cells)
}

func TestHashDistinguishesPrograms(t *testing.T) {
	assert.NotEqual(t, Hash([]int64{1, 0, 0, 0, 99}), Hash([]int64{2, 0, 0, 0, 99}))
	assert.Equal(t, Hash([]int64{99}), Hash([]int64{99}))
}

func TestGetProgramNotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.GetProgram(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotLifecycle(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	vm := intcode.Load([]int64{3, 0, 4, 0, 99})
	out, err := vm.Run()
	require.NoError(t, err)
	require.Equal(t, intcode.StatusNeedsInput, out.Status)
	require.NoError(t, vm.ProvideInput(11))

	state, err := vm.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, "s-1", "abc", state))

	snap, err := s.LoadSnapshot(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", snap.ProgramHash)
	assert.Equal(t, state, snap.State)
	assert.False(t, snap.Updated.IsZero())

	restored, err := intcode.Restore(snap.State)
	require.NoError(t, err)
	out, err = restored.Run()
	require.NoError(t, err)
	assert.Equal(t, intcode.Output(11), out)

	ids, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, ids)

	require.NoError(t, s.DeleteSnapshot(ctx, "s-1"))
	_, err = s.LoadSnapshot(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.DeleteSnapshot(ctx, "s-1"))
}

func TestSnapshotGrownMemory(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	vm := intcode.Load([]int64{1101, 7, 0, 150000, 3, 0, 99})
	out, err := vm.Run()
	require.NoError(t, err)
	require.Equal(t, intcode.StatusNeedsInput, out.Status)

	state, err := vm.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, "s-big", "", state))

	snap, err := s.LoadSnapshot(ctx, "s-big")
	require.NoError(t, err)
	assert.Len(t, snap.State.Memory, 150001)
	assert.Equal(t, int64(7), snap.State.Memory[150000])
	assert.Equal(t, int64(4), snap.State.IP)
}

func TestSaveSnapshotReplaces(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	vm := intcode.Load([]int64{104, 1, 104, 2, 99})
	first, err := vm.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, "s-2", "", first))

	_, err = vm.Run()
	require.NoError(t, err)
	second, err := vm.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, "s-2", "", second))

	snap, err := s.LoadSnapshot(ctx, "s-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.State.IP)
}

func TestStorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	h, err := s.PutProgram(ctx, "halt", []int64{99})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetProgram(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []int64{99}, got)
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	h, err := s.PutProgram(context.Background(), "", []int64{1, 2})
	require.NoError(t, err)
	got, err := s.GetProgram(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got)
}
