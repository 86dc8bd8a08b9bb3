package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_None(t *testing.T) {
	shutdown, err := Setup(context.Background(), "storefront", "none", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_Stdout(t *testing.T) {
	shutdown, err := Setup(context.Background(), "storefront", "stdout", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_Unknown(t *testing.T) {
	_, err := Setup(context.Background(), "storefront", "zipkin", "")
	assert.Error(t, err)
}
