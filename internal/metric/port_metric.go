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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PortNameKey is the attribute naming the port an observation belongs to
const PortNameKey = attribute.Key("remact.port")

// MessageTypeKey is the attribute naming the message type
const MessageTypeKey = attribute.Key("remact.message_type")

// PortMetric defines the port instrumentation
type PortMetric struct {
	// total number of messages sent by a port
	sentCount metric.Int64Counter
	// total number of messages dispatched by a port
	receivedCount metric.Int64Counter
	// total number of messages that ended with an error response
	failureCount metric.Int64Counter
	// dispatch duration in milliseconds
	dispatchDuration metric.Float64Histogram
}

// NewPortMetric creates an instance of PortMetric
func NewPortMetric(meter metric.Meter) (*PortMetric, error) {
	portMetric := new(PortMetric)
	var err error
	if portMetric.sentCount, err = meter.Int64Counter(
		"remact_port_sent_count",
		metric.WithDescription("Total number of messages sent"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sentCount instrument, %w", err)
	}

	if portMetric.receivedCount, err = meter.Int64Counter(
		"remact_port_received_count",
		metric.WithDescription("Total number of messages dispatched"),
	); err != nil {
		return nil, fmt.Errorf("failed to create receivedCount instrument, %w", err)
	}

	if portMetric.failureCount, err = meter.Int64Counter(
		"remact_port_failure_count",
		metric.WithDescription("Total number of messages answered with an error"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failureCount instrument, %w", err)
	}

	if portMetric.dispatchDuration, err = meter.Float64Histogram(
		"remact_port_dispatch_duration",
		metric.WithDescription("The latency of message dispatch in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create dispatchDuration instrument, %w", err)
	}

	return portMetric, nil
}

// RecordSent counts a sent message
func (x *PortMetric) RecordSent(ctx context.Context, port, messageType string) {
	x.sentCount.Add(ctx, 1, metric.WithAttributes(PortNameKey.String(port), MessageTypeKey.String(messageType)))
}

// RecordReceived counts a dispatched message and its dispatch latency
func (x *PortMetric) RecordReceived(ctx context.Context, port, messageType string, elapsed time.Duration) {
	attrs := metric.WithAttributes(PortNameKey.String(port), MessageTypeKey.String(messageType))
	x.receivedCount.Add(ctx, 1, attrs)
	x.dispatchDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}

// RecordFailure counts a message that ended with an error response
func (x *PortMetric) RecordFailure(ctx context.Context, port string) {
	x.failureCount.Add(ctx, 1, metric.WithAttributes(PortNameKey.String(port)))
}
