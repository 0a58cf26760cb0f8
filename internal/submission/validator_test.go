package submission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Stone's Pizza!", "stone-s-pizza-"},
		{"Stone's Pizza", "stone-s-pizza"},
		{"  Acme Widgets  ", "acme-widgets"},
		{"café 24/7", "caf--24-7"},
		{"already-fine-slug", "already-fine-slug"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Slugify(tc.in))
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	t.Parallel()

	once := Slugify("Stone's Pizza!")
	require.Equal(t, once, Slugify(once))
}

func TestValidateAcceptsRecord(t *testing.T) {
	t.Parallel()

	sub, err := Validate([]byte(`{"name": "Stone's Pizza", "url": "https://stonespizza.com", "phone": "555-1234"}`))
	require.NoError(t, err)
	require.Equal(t, "Stone's Pizza", sub.Name)
	require.Equal(t, "https://stonespizza.com", sub.URL)
	require.Equal(t, "stone-s-pizza", sub.Slug)
	require.Equal(t, "555-1234", sub.Fields["phone"])
}

func TestValidateRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{"name": `},
		{"empty body", ``},
		{"missing name", `{"url": "https://example.com"}`},
		{"blank name", `{"name": "   "}`},
		{"non-string name", `{"name": 42}`},
		{"null payload", `null`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Validate([]byte(tc.body))
			require.Error(t, err)
			var invalid *InvalidInputError
			require.True(t, errors.As(err, &invalid))
			require.NotEmpty(t, invalid.Reason)
		})
	}
}
