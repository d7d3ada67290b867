// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package metric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestPortMetric(t *testing.T) {
	t.Run("with noop meter", func(t *testing.T) {
		portMetric, err := NewPortMetric(noop.NewMeterProvider().Meter("test"))
		require.NoError(t, err)
		assert.NotNil(t, portMetric)
		portMetric.RecordSent(context.Background(), "p", "Request")
	})
	t.Run("with sdk reader", func(t *testing.T) {
		ctx := context.Background()
		reader := sdkmetric.NewManualReader()
		provider := NewProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

		portMetric, err := NewPortMetric(provider.Meter())
		require.NoError(t, err)

		portMetric.RecordSent(ctx, "PingService", "Request")
		portMetric.RecordSent(ctx, "PingService", "Request")
		portMetric.RecordReceived(ctx, "PingService", "Response", 2*time.Millisecond)
		portMetric.RecordFailure(ctx, "PingService")

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		require.Len(t, rm.ScopeMetrics, 1)

		got := make(map[string]metricdata.Aggregation)
		for _, m := range rm.ScopeMetrics[0].Metrics {
			got[m.Name] = m.Data
		}

		sent, ok := got["remact_port_sent_count"].(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sent.DataPoints, 1)
		assert.EqualValues(t, 2, sent.DataPoints[0].Value)

		received, ok := got["remact_port_received_count"].(metricdata.Sum[int64])
		require.True(t, ok)
		assert.EqualValues(t, 1, received.DataPoints[0].Value)

		failures, ok := got["remact_port_failure_count"].(metricdata.Sum[int64])
		require.True(t, ok)
		assert.EqualValues(t, 1, failures.DataPoints[0].Value)

		latency, ok := got["remact_port_dispatch_duration"].(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, latency.DataPoints, 1)
		assert.EqualValues(t, 1, latency.DataPoints[0].Count)
	})
	t.Run("global provider fallback", func(t *testing.T) {
		assert.NotNil(t, NewProvider(nil).Meter())
	})
}
