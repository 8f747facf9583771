package instrumentation

import (
	"context"
	"errors"
	"testing"
)

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithRunID("run-1").
		WithTrigger("http").
		WithResource("calendar", "primary").
		Build()

	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrRunID] != "run-1" {
		t.Errorf("expected run id 'run-1', got %v", attrMap[SpanAttrRunID])
	}
	if attrMap[SpanAttrTrigger] != "http" {
		t.Errorf("expected trigger 'http', got %v", attrMap[SpanAttrTrigger])
	}
	if attrMap[SpanAttrResourceType] != "calendar" {
		t.Errorf("expected resource type 'calendar', got %v", attrMap[SpanAttrResourceType])
	}
	if attrMap[SpanAttrResourceID] != "primary" {
		t.Errorf("expected resource id 'primary', got %v", attrMap[SpanAttrResourceID])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithRunID("").
		WithResource("", "").
		Build()

	if len(attrs) != 0 {
		t.Errorf("expected empty values to be skipped, got %d attributes", len(attrs))
	}
}

func TestStartSpans(t *testing.T) {
	ctx := context.Background()

	ctx, runSpan := StartRunSpan(ctx, NewSpanAttributeBuilder().WithTrigger("cli").Build()...)
	defer runSpan.End()

	_, apiSpan := StartGoogleAPISpan(ctx, ServiceCalendar, "list")
	SetSpanError(apiSpan, errors.New("quota exceeded"))
	SetSpanError(apiSpan, nil)
	apiSpan.End()

	_, span := StartSpan(ctx, "webhook.send")
	SetSpanSuccess(span)
	span.End()
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
}
