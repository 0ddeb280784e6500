// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	require := require.New(t)

	fs := BuildFlagSet()
	require.NoError(fs.Parse(nil))
	v, err := BuildViper(fs)
	require.NoError(err)

	cfg, err := NewConfig(v)
	require.NoError(err)
	require.Equal(defaultLogLevel, cfg.LogLevel)
	require.Equal(uint16(defaultMetricsPort), cfg.MetricsPort)
	require.Equal(defaultNoticeBuffer, cfg.NoticeBuffer)
	require.Empty(cfg.ClusterNodeIDs())
}

func TestValidate(t *testing.T) {
	nodeID := ids.GenerateTestNodeID()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg: Config{
				LogLevel:     "debug",
				NoticeBuffer: 16,
				ClusterNodes: []string{nodeID.String()},
			},
		},
		{
			name: "bad log level",
			cfg: Config{
				LogLevel:     "shout",
				NoticeBuffer: 16,
			},
			wantErr: true,
		},
		{
			name: "bad notice buffer",
			cfg: Config{
				LogLevel:     "info",
				NoticeBuffer: 0,
			},
			wantErr: true,
		},
		{
			name: "bad node ID",
			cfg: Config{
				LogLevel:     "info",
				NoticeBuffer: 16,
				ClusterNodes: []string{"not-a-node-id"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, tt.cfg.ClusterNodeIDs(), len(tt.cfg.ClusterNodes))
		})
	}
}
