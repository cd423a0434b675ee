package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfuze/rig/internal/ports"
)

func fakeDiscover(context.Context, string, string, ports.Logger) (ports.BuildSystemPlugin, error) {
	return nil, nil
}

func TestRegisterAndGet(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	require.NoError(t, Register("cmake", fakeDiscover))

	discover, err := Get("cmake")
	require.NoError(t, err)
	assert.NotNil(t, discover)

	_, err = Get("bazel")
	require.Error(t, err)
}

func TestRegisterRejectsDuplicatesAndNil(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	require.NoError(t, Register("cmake", fakeDiscover))
	require.Error(t, Register("cmake", fakeDiscover))
	require.Error(t, Register("meson", nil))
}

func TestNamesSorted(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	require.NoError(t, Register("meson", fakeDiscover))
	require.NoError(t, Register("cmake", fakeDiscover))
	assert.Equal(t, []string{"cmake", "meson"}, Names())
}
