package profile

import (
	"testing"

	"github.com/AnyUserName/phototune/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValidIdentity(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.True(t, p.IsIdentity())
	assert.False(t, Params{}.IsIdentity())
}

func TestValidate_Singularities(t *testing.T) {
	for _, p := range []Params{
		{Contrast: 255, Gamma: 1},
		{Saturation: -255, Gamma: 1},
		{Gamma: 0},
		{Brightness: -300, Gamma: 1},
	} {
		err := p.Validate()
		require.Error(t, err, "%v", p)
		assert.ErrorIs(t, err, filter.ErrInvalidParameter)
	}
}

func TestValidate_ReportsEveryBadField(t *testing.T) {
	err := Params{Contrast: 255, Saturation: 255, Gamma: -1}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contrast")
	assert.Contains(t, err.Error(), "saturation")
	assert.Contains(t, err.Error(), "gamma")
}

func TestApply(t *testing.T) {
	p, err := Default().Apply("brightness", "42")
	require.NoError(t, err)
	p, err = p.Apply("C", "-12.5")
	require.NoError(t, err)
	p, err = p.Apply("saturation", "80")
	require.NoError(t, err)
	p, err = p.Apply("gamma", " 1.4 ")
	require.NoError(t, err)
	assert.Equal(t, Params{Brightness: 42, Contrast: -12.5, Saturation: 80, Gamma: 1.4}, p)

	p, err = p.Apply("brightness", "7.0")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Brightness)

	_, err = p.Apply("brightness", "7.5")
	assert.Error(t, err)
	_, err = p.Apply("hue", "1")
	assert.Error(t, err)
	_, err = p.Apply("gamma", "abc")
	assert.Error(t, err)
}

func TestBuiltinProfilesAreValid(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	for _, n := range names {
		p, err := Get(n)
		require.NoError(t, err)
		assert.Equal(t, n, p.Name)
		assert.NoError(t, p.Params.Validate(), n)
	}

	neutral, err := Get("NEUTRAL")
	require.NoError(t, err)
	assert.True(t, neutral.Params.IsIdentity())

	_, err = Get("sepia")
	assert.Error(t, err)
}
