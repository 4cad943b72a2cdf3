package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemString(t *testing.T) {
	require.Equal(t, "card:1", ItemString("card", 1, nil))
	require.Equal(t, "card:1", ItemString("card", 1, map[string]interface{}{"name": 5}))
	require.Equal(t, `dashboard:2("Sales \"EU\"")`, ItemString("dashboard", 2, map[string]interface{}{"name": `Sales "EU"`}))
}
