package labels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/gateway/gatewaytest"
	"github.com/workbook-tools/collection-migrator/pkg/streams"
)

func TestLabels(t *testing.T) {
	require := require.New(t)
	f := gatewaytest.NewFake()
	f.Add("collection", map[string]interface{}{"id": 3, "name": "Sales"})
	f.Add("card", map[string]interface{}{"id": 1, "name": " Orders ", "description": "All orders", "collection_id": 3})
	f.Add("dashboard", map[string]interface{}{"id": 2, "name": "Overview", "collection_id": 3})

	testIO, _, out, _ := streams.NewTestIO()
	o := NewOptions(testIO)
	o.Client = f
	o.Language = "FR"
	o.Output = "yaml"
	require.NoError(o.Complete([]string{"3"}))
	require.NoError(o.Run(context.Background()))
	require.Equal("labels:\n  All orders: All orders\n  Orders: Orders\n  Overview: Overview\nlanguage: FR\n", out.String())
}
