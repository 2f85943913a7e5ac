package loom

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope of runtime spans.
const tracerName = "github.com/vango-dev/loom"

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func patchAttributes(patches []Patch) []attribute.KeyValue {
	var counts [PatchUpdate + 1]int
	for _, p := range patches {
		if p.Type <= PatchUpdate {
			counts[p.Type]++
		}
	}
	return []attribute.KeyValue{
		attribute.Int("loom.patches", len(patches)),
		attribute.Int("loom.creates", counts[PatchCreate]),
		attribute.Int("loom.removes", counts[PatchRemove]),
		attribute.Int("loom.replaces", counts[PatchReplace]),
		attribute.Int("loom.texts", counts[PatchText]),
		attribute.Int("loom.updates", counts[PatchUpdate]),
	}
}
