package cookie

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "document cookie string",
			input: "a=1; csrftoken=XYZ; b=2",
			want:  map[string]string{"a": "1", "csrftoken": "XYZ", "b": "2"},
		},
		{
			name:  "empty string",
			input: "",
			want:  map[string]string{},
		},
		{
			name:  "url-encoded value is decoded",
			input: "csrftoken=ab%3Dcd%20ef",
			want:  map[string]string{"csrftoken": "ab=cd ef"},
		},
		{
			name:  "plus sign is kept literally",
			input: "a=1; csrftoken=ab+cd%2Bef",
			want:  map[string]string{"a": "1", "csrftoken": "ab+cd+ef"},
		},
		{
			name:  "undecodable value kept raw",
			input: "csrftoken=50%zz",
			want:  map[string]string{"csrftoken": "50%zz"},
		},
		{
			name:  "value containing '=' splits on first only",
			input: "k=v=w",
			want:  map[string]string{"k": "v=w"},
		},
		{
			name:  "pairs without '=' are skipped",
			input: "flag; csrftoken=T ;;",
			want:  map[string]string{"csrftoken": "T"},
		},
		{
			name:  "first occurrence wins",
			input: "csrftoken=first; csrftoken=second",
			want:  map[string]string{"csrftoken": "first"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestLookup(t *testing.T) {
	v, ok := Lookup("a=1; csrftoken=XYZ; b=2", Name)
	assert.True(t, ok)
	assert.Equal(t, "XYZ", v)

	_, ok = Lookup("a=1", Name)
	assert.False(t, ok)
}

func TestStringReader(t *testing.T) {
	r := StringReader("sessionid=s; csrftoken=XYZ")
	v, ok := r.Cookie(Name)
	assert.True(t, ok)
	assert.Equal(t, "XYZ", v)
}

func TestJarReader(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	u, err := url.Parse("http://backend.test/")
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: Name, Value: "from-jar"}})

	r, err := NewJarReader(jar, "http://backend.test/api/points/")
	require.NoError(t, err)

	v, ok := r.Cookie(Name)
	assert.True(t, ok)
	assert.Equal(t, "from-jar", v)

	_, ok = r.Cookie("missing")
	assert.False(t, ok)

	jar.SetCookies(u, []*http.Cookie{{Name: "plus", Value: "ab+cd%2Bef"}})
	v, ok = r.Cookie("plus")
	assert.True(t, ok)
	assert.Equal(t, "ab+cd+ef", v)

	var nilReader *JarReader
	_, ok = nilReader.Cookie(Name)
	assert.False(t, ok)
}

func TestChain(t *testing.T) {
	c := Chain{StringReader("a=1"), nil, StringReader("csrftoken=second")}
	v, ok := c.Cookie(Name)
	assert.True(t, ok)
	assert.Equal(t, "second", v)

	_, ok = Chain{}.Cookie(Name)
	assert.False(t, ok)
}
