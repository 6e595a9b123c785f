// Package observability provides metrics and logging utilities.
package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys
const (
	attrQueue   = "queue"
	attrOp      = "op"
	attrSuccess = "success"
)

func queueAttr(queue string) attribute.KeyValue {
	return attribute.String(attrQueue, shortQueueName(queue))
}

func opAttr(op string) attribute.KeyValue {
	return attribute.String(attrOp, op)
}

func successAttr(success bool) attribute.KeyValue {
	return attribute.Bool(attrSuccess, success)
}

// shortQueueName strips an ARN prefix to keep label cardinality readable.
// arn:aws:batch:us-west-2:123456789012:job-queue/main -> main
func shortQueueName(queue string) string {
	for i := len(queue) - 1; i >= 0; i-- {
		if queue[i] == '/' {
			return queue[i+1:]
		}
	}
	return queue
}

// WithQueue returns a metric option with the queue attribute.
func WithQueue(queue string) metric.MeasurementOption {
	return metric.WithAttributes(queueAttr(queue))
}

// WithOp returns a metric option with the op attribute.
func WithOp(op string) metric.MeasurementOption {
	return metric.WithAttributes(opAttr(op))
}

// WithSuccess returns a metric option with the success attribute.
func WithSuccess(success bool) metric.MeasurementOption {
	return metric.WithAttributes(successAttr(success))
}
