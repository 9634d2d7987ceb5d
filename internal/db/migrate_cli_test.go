package db

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "status on empty database", args: []string{"status"}, want: "Current version: 0"},
		{name: "up", args: []string{"up"}, want: "Current version: 2"},
		{name: "down", args: []string{"down"}, want: "Current version: 1"},
		{name: "help", args: []string{"help"}, want: "Actions:"},
		{name: "unknown action", args: []string{"sideways"}, wantErr: true},
		{name: "no action", args: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := RunMigrateCommand(tt.args, path, &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
