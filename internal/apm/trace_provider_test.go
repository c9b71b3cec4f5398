package apm

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/price-getter/internal/logger"
)

func TestNewTraceProvider(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)

	tests := []struct {
		name     string
		exporter Exporter
		wantErr  bool
	}{
		{"none", EmptyExporter, false},
		{"unset", "", false},
		{"stdout", ConsoleExporter, false},
		{"zipkin", ZipkinExporter, false},
		{"unknown", "carrier-pigeon", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := NewTraceProvider(context.Background(), TraceConfig{
				ServiceName: "price-getter-test",
				Exporter:    tt.exporter,
				Endpoint:    "http://localhost:9411/api/v2/spans",
			}, log)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, tp.Stop())
		})
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders("x-honeycomb-team=abc, api-key=k=v,broken,=empty")
	assert.Equal(t, map[string]string{
		"x-honeycomb-team": "abc",
		"api-key":          "k=v",
	}, got)
	assert.Empty(t, ParseHeaders(""))
}
