package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NopLogger(t *testing.T) {
	l := New()
	require.NotNil(t, l.Log)
	l.Log.Info("discarded")
}

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    string
		wantErr bool
	}{
		{"info", "Info", "info", false},
		{"debug", "debug", "debug", false},
		{"error", "ERROR", "error", false},
		{"unknown", "loud", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			err := l.Init(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Level())
		})
	}
}
