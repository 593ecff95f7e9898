package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemangle(t *testing.T) {
	const mangled = "_ZN3foo3barEi"

	out, ok := Demangle(mangled, 0)
	require.True(t, ok)
	assert.Equal(t, "foo::bar(int)", out)

	out, ok = Demangle(mangled, OmitParams)
	require.True(t, ok)
	assert.Equal(t, "foo::bar", out)

	out, ok = Demangle(mangled, NameOnly)
	require.True(t, ok)
	assert.Equal(t, "foo::bar", out)

	out, ok = Demangle(mangled, OmitReturnType)
	require.True(t, ok)
	assert.Equal(t, "foo::bar(int)", out)

	_, ok = Demangle("main", DefaultDemangleFlags)
	assert.False(t, ok)
	assert.Equal(t, "main", DisplayName("main", DefaultDemangleFlags))
	assert.Equal(t, "foo::bar", DisplayName(mangled, DefaultDemangleFlags))
}

func TestParseDemangleFlags(t *testing.T) {
	tests := []struct {
		in   string
		want DemangleFlags
	}{
		{"", NameOnly},
		{"name-only", NameOnly},
		{"No-Params", OmitParams},
		{"no-return", OmitReturnType},
		{"full", 0},
	}
	for _, tt := range tests {
		got, err := ParseDemangleFlags(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDemangleFlags("verbose")
	assert.Error(t, err)
	assert.Equal(t, "no-params", OmitParams.String())
}
