package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	testCases := []struct {
		name        string
		level       string
		expectedErr bool
		enabled     zapcore.Level
	}{
		{name: "debug", level: "debug", enabled: zapcore.DebugLevel},
		{name: "info", level: "info", enabled: zapcore.InfoLevel},
		{name: "upper case warn", level: "WARN", enabled: zapcore.WarnLevel},
		{name: "unknown level", level: "chatty", expectedErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Initialize(tc.level)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, Logger.Core().Enabled(tc.enabled))
			assert.False(t, Logger.Core().Enabled(tc.enabled-1))
		})
	}
}

func TestFields(t *testing.T) {
	assert.Equal(t, "repo_url", Repo("https://github.com/a/b.git").Key)
	assert.Equal(t, int64(7), PR(7).Integer)
}
