package write

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/gateway/gatewaytest"
)

func TestStdObjectWriter(t *testing.T) {
	require := require.New(t)
	f := gatewaytest.NewFake()
	f.Add("card", map[string]interface{}{"id": 1, "name": "Orders", "display": "table"})

	w := NewCountingObjectWriter(NewObjectWriter(f))
	require.NoError(w.Write(context.Background(), catalog.KindCard, 1, map[string]interface{}{"id": 1, "display": "bar"}))

	require.Equal(1, f.Puts("/api/card/1"))
	require.Equal(1, w.Count(catalog.KindCard))
	require.Equal(0, w.Count(catalog.KindDashboard))
	card, ok := f.Object("card", 1)
	require.True(ok)
	require.Equal("bar", card["display"])
	require.Equal("Orders", card["name"])
}

func TestCountingSkipsFailedWrites(t *testing.T) {
	require := require.New(t)
	f := gatewaytest.NewFake()
	f.Add("dashboard", map[string]interface{}{"id": 2})
	f.FailPuts["/api/dashboard/2"] = http.StatusInternalServerError

	w := NewCountingObjectWriter(NewObjectWriter(f))
	err := w.Write(context.Background(), catalog.KindDashboard, 2, map[string]interface{}{"id": 2})
	require.True(errors.Is(err, errdefs.ErrMigration))
	require.Equal(0, w.Count(catalog.KindDashboard))

	err = w.Write(context.Background(), catalog.KindDashboard, 3, map[string]interface{}{"id": 3})
	require.True(errors.Is(err, errdefs.ErrNotFound))
}

func TestDryRunDoesNotWrite(t *testing.T) {
	require := require.New(t)
	w := NewCountingObjectWriter(NewObjectWriter(nil))
	require.IsType(LoggingObjectWriter{}, w.writer)
	require.NoError(w.Write(context.Background(), catalog.KindCard, 1, map[string]interface{}{"name": "Orders"}))
	require.Equal(1, w.Count(catalog.KindCard))
}
