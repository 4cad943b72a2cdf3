package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/gateway/gatewaytest"
	"github.com/workbook-tools/collection-migrator/pkg/streams"
)

func fake() *gatewaytest.Fake {
	f := gatewaytest.NewFake()
	f.Add("collection", map[string]interface{}{"id": 3, "name": "Sales"})
	f.Add("card", map[string]interface{}{"id": 1, "name": "Orders ", "collection_id": 3})
	f.Add("card", map[string]interface{}{"id": 2, "name": "Refunds", "collection_id": 3})
	return f
}

func TestTranslate(t *testing.T) {
	require := require.New(t)
	f := fake()

	testIO, _, _, _ := streams.NewTestIO()
	o := NewOptions(testIO)
	o.Client = f
	o.Dictionary = &config.Dictionary{Labels: map[string]string{"Orders": "Commandes"}}
	require.NoError(o.Complete([]string{"3"}))
	require.NoError(o.Run(context.Background()))

	card, _ := f.Object("card", 1)
	require.Equal("Commandes ", card["name"])
	require.Equal(1, f.Puts("/api/card/1"))
	require.Equal(0, f.Puts("/api/card/2"))
}

func TestTranslateDryRun(t *testing.T) {
	require := require.New(t)
	f := fake()

	testIO, _, _, _ := streams.NewTestIO()
	o := NewOptions(testIO)
	o.Client = f
	o.DryRun = true
	o.Dictionary = &config.Dictionary{Labels: map[string]string{"Orders": "Commandes"}}
	require.NoError(o.Complete([]string{"3"}))
	require.NoError(o.Run(context.Background()))

	card, _ := f.Object("card", 1)
	require.Equal("Orders ", card["name"])
	require.Equal(0, f.Puts("/api/card/1"))
}

func TestTranslateRequiresDictionary(t *testing.T) {
	testIO, _, _, _ := streams.NewTestIO()
	o := NewOptions(testIO)
	o.Client = fake()
	require.True(t, errors.Is(o.Complete([]string{"3"}), errdefs.ErrConfiguration))
}
