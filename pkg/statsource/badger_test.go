package statsource

import (
	"context"
	"testing"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerSource_InMemory(t *testing.T) {
	ctx := context.Background()
	src := NewBadgerSource("")
	defer src.Close()
	assert.Equal(t, "badger:memory", src.Name())

	_, err := src.Load(ctx)
	assert.True(t, core.IsSourceLoad(err))

	require.NoError(t, src.Save(ctx, ldbcCatalog(t)))
	c, err := src.Load(ctx)
	require.NoError(t, err)
	requireLDBC(t, c)

	names, err := src.Catalogs()
	require.NoError(t, err)
	assert.Equal(t, []string{CurrentCatalog}, names)
}

func TestBadgerSource_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src := NewBadgerSource(dir).WithCatalog("ldbc-sf1")
	require.NoError(t, src.Save(ctx, ldbcCatalog(t)))
	require.NoError(t, src.Close())

	reopened := NewBadgerSource(dir).WithCatalog("ldbc-sf1")
	defer reopened.Close()
	c, err := reopened.Load(ctx)
	require.NoError(t, err)
	requireLDBC(t, c)

	_, err = NewBadgerSource(dir).WithCatalog("other").Load(ctx)
	assert.Error(t, err)
}
