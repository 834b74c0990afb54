package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name          string
		opts          Options
		expectedLevel logrus.Level
		expectError   bool
	}{
		{name: "defaults to warn", opts: Options{}, expectedLevel: logrus.WarnLevel},
		{name: "explicit level", opts: Options{Level: "info"}, expectedLevel: logrus.InfoLevel},
		{name: "verbose wins over level", opts: Options{Level: "error", Verbose: true}, expectedLevel: logrus.DebugLevel},
		{name: "json format", opts: Options{Format: "json"}, expectedLevel: logrus.WarnLevel},
		{name: "bad level", opts: Options{Level: "loud"}, expectError: true},
		{name: "bad format", opts: Options{Format: "xml"}, expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log, err := New(tc.opts)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedLevel, log.GetLevel())
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	log.WithField("org", "acme").Info("fetching members")

	assert.Contains(t, buf.String(), `"org":"acme"`)
	assert.Contains(t, buf.String(), `"msg":"fetching members"`)
}
