package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-d", "postgres://x", "-a", ":8080"},
			allowed: []string{"-d"},
			want:    []string{"-d", "postgres://x"},
		},
		{
			name:    "equals form",
			args:    []string{"-a=:9000", "-d", "dsn"},
			allowed: []string{"-a"},
			want:    []string{"-a=:9000"},
		},
		{
			name:    "order preserved",
			args:    []string{"-config=first.json", "-c", "second.json", "-x", "1"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=first.json", "-c", "second.json"},
		},
		{
			name:    "unknown ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag followed by flag takes no value",
			args:    []string{"-c", "-prod"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "trailing flag",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"server", "-a", ":8080", "-c", "conf.json"}
	assert.Equal(t, "conf.json", JsonConfigFlags())

	os.Args = []string{"server", "-config=other.json"}
	assert.Equal(t, "other.json", JsonConfigFlags())

	os.Args = []string{"server", "-a", ":8080"}
	assert.Equal(t, "", JsonConfigFlags())
}
